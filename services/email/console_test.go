package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core"
	testutil "github.com/trezcool/teleapo/tests"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLoggerMock()
	core.ParseEmailTemplates(conf, logger)
	ResetSentMessages()
	svc := NewConsoleServiceMock(conf, logger)

	withAttachment := &core.EmailMessage{
		To:      []mail.Address{{Name: "Jane", Address: "jane@teleapo.test"}},
		Subject: "Export",
		BodyStr: "see attached",
	}
	require.NoError(t, withAttachment.Attach(bytes.NewBufferString("a,b"), "leads.csv", "text/csv"))

	svc.SendMessages(
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "x@teleapo.test"}}, Subject: "no content"},
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Taro", Address: "taro@teleapo.test"}},
			Subject:      "New appointment",
			TemplateName: "appointment_scheduled",
			TemplateData: map[string]interface{}{
				"OwnerName": "Taro", "LeadName": "ACME", "Company": "", "Phone": "03", "Title": "Demo",
				"Description": "", "StartAt": "Mon, 06 May 2024 10:00:00 UTC", "EndAt": "Mon, 06 May 2024 11:00:00 UTC",
			},
		},
		withAttachment,
	)

	require.Len(t, SentMessages, 2)
	tmplMsg := SentMessages[0]
	assert.True(t, strings.Contains(tmplMsg.TextContent, "Hello Taro,"))
	assert.True(t, strings.Contains(tmplMsg.HTMLContent, "ACME"))

	last, ok := LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "see attached", last.TextContent)
	assert.Equal(t, "text/csv", last.Attachments[0].ContentType)
	assert.Zero(t, logger.Count("error"))

	ResetSentMessages()
	_, ok = LastSentMessage()
	assert.False(t, ok)
}

func TestConsoleServiceMock_TemplateError(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLoggerMock()
	core.ParseEmailTemplates(conf, logger)
	ResetSentMessages()

	// missing keys fail in test mode
	NewConsoleServiceMock(conf, logger).SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: "taro@teleapo.test"}},
		TemplateName: "appointment_scheduled",
		TemplateData: map[string]interface{}{"OwnerName": "Taro"},
	})
	assert.Empty(t, SentMessages)
	assert.Equal(t, 1, logger.Count("error"))
}

func TestConsoleService_Send(t *testing.T) {
	svc := consoleService{
		defaultFromEmail: mail.Address{Name: "Teleapo", Address: "noreply@teleapo.test"},
		subjPrefix:       "[Teleapo] ",
		disableOutput:    true,
	}
	err := svc.send(core.EmailMessage{
		To:          []mail.Address{{Address: "a@teleapo.test"}, {Address: "b@teleapo.test"}},
		TextContent: "hi",
		HTMLContent: "<p>hi</p>",
	})
	assert.NoError(t, err)
	assert.Equal(t, "<a@teleapo.test>, <b@teleapo.test>", svc.joinAddresses([]mail.Address{{Address: "a@teleapo.test"}, {Address: "b@teleapo.test"}}))
}
