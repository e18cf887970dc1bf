// Package notificationsvc pushes notifications to the project owner through the platform API.
package notificationsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/teleapo/core"
)

const (
	sendPath         = "webdevtoken.v1.WebDevService/SendNotification"
	TitleMaxLength   = 1200
	ContentMaxLength = 20000
)

var (
	// errors
	ErrNoTitle         = errors.New("Notification title is required.")
	ErrNoContent       = errors.New("Notification content is required.")
	ErrTitleTooLong    = errors.Errorf("Notification title must be at most %d characters.", TitleMaxLength)
	ErrContentTooLong  = errors.Errorf("Notification content must be at most %d characters.", ContentMaxLength)
	ErrNoServiceURL    = errors.New("Notification service URL is not configured.")
	ErrNoServiceAPIKey = errors.New("Notification service API key is not configured.")
)

type Notification struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate trims the notification and checks its length.
// It returns a core.ValidationError when the notification may not be sent.
func (n *Notification) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	n.Content = strings.TrimSpace(n.Content)

	var err error
	switch {
	case n.Title == "":
		err = ErrNoTitle
	case n.Content == "":
		err = ErrNoContent
	case utf8.RuneCountInString(n.Title) > TitleMaxLength:
		err = ErrTitleTooLong
	case utf8.RuneCountInString(n.Content) > ContentMaxLength:
		err = ErrContentTooLong
	default:
		return nil
	}
	field := "title"
	if err == ErrNoContent || err == ErrContentTooLong {
		field = "content"
	}
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

type Service struct {
	apiURL string
	apiKey string
	client *rest.Client
	logger core.Logger
}

func NewService(conf *core.Config, logger core.Logger) *Service {
	return &Service{
		apiURL: conf.Forge.APIURL,
		apiKey: conf.Forge.APIKey,
		client: &rest.Client{HTTPClient: http.DefaultClient},
		logger: logger,
	}
}

func (svc *Service) endpoint() string {
	if strings.HasSuffix(svc.apiURL, "/") {
		return svc.apiURL + sendPath
	}
	return svc.apiURL + "/" + sendPath
}

// NotifyOwner sends the notification. It reports false, without error, when the service refused or could not be reached.
// Invalid notifications and a missing configuration are returned as errors.
func (svc *Service) NotifyOwner(ctx context.Context, n Notification) (bool, error) {
	if err := n.Validate(); err != nil {
		return false, err
	}
	if svc.apiURL == "" {
		return false, ErrNoServiceURL
	}
	if svc.apiKey == "" {
		return false, ErrNoServiceAPIKey
	}

	body, err := json.Marshal(n)
	if err != nil {
		return false, errors.Wrap(err, "marshalling notification")
	}
	res, err := svc.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.endpoint(),
		Headers: map[string]string{
			"Accept":                   "application/json",
			"Authorization":            "Bearer " + svc.apiKey,
			"Content-Type":             "application/json",
			"Connect-Protocol-Version": "1",
		},
		Body: body,
	})
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("notification.NotifyOwner: %v", err), err)
		return false, nil
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		svc.logger.Warn(fmt.Sprintf("notification.NotifyOwner: status %d: %s", res.StatusCode, res.Body))
		return false, nil
	}
	return true, nil
}
