package emailsvc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core"
	testutil "github.com/trezcool/teleapo/tests"
)

func newSendgridTestService(t *testing.T, handler http.HandlerFunc) *sendgridService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := testutil.NewConfig()
	conf.SendgridApiKey = "sg-key"
	svc := NewSendgridService(conf, testutil.NewLoggerMock())
	svc.host = srv.URL
	return svc
}

func TestSendgridService_Prepare(t *testing.T) {
	svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {})

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Taro", Address: "taro@teleapo.test"}},
		Cc:          []mail.Address{{Address: "cc@teleapo.test"}},
		Subject:     "Hello",
		HTMLContent: "<p>hi</p>",
	})
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Teleapo] Hello", p.Subject)
	assert.Equal(t, "taro@teleapo.test", p.To[0].Address)
	assert.Equal(t, "cc@teleapo.test", p.CC[0].Address)
	assert.Equal(t, "noreply@teleapo.test", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/html", m.Content[0].Type)
}

func TestSendgridService_Send(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]interface{}
	)
	svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	})

	err := svc.send(core.EmailMessage{To: []mail.Address{{Address: "taro@teleapo.test"}}, Subject: "Hi", TextContent: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", gotAuth)
	assert.Contains(t, gotBody, "personalizations")
}

func TestSendgridService_SendFailure(t *testing.T) {
	svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	})

	err := svc.send(core.EmailMessage{To: []mail.Address{{Address: "taro@teleapo.test"}}, TextContent: "hi"})
	assert.Error(t, err)
}
