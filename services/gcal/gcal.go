// Package gcalsvc connects users' Google Calendars and creates appointment events in them.
package gcalsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/appointment"
	"github.com/trezcool/teleapo/core/user"
)

const primaryCalendar = "primary"

var (
	// errors
	ErrBadState      = errors.New("invalid state")
	ErrOtherUser     = errors.New("state was issued to another user")
	ErrNotConnected  = errors.New("google calendar is not connected")
	ErrNotConfigured = core.NewValidationError(errors.New("Google Calendar is not configured"))
)

// TokenStore persists the tokens of the users who connected their calendar.
type TokenStore interface {
	SetGoogleTokens(ctx context.Context, userID int, tokens user.GoogleTokens) error
}

type state struct {
	UserID int `json:"userId"`
}

type Service struct {
	oauth    *oauth2.Config
	tokens   TokenStore
	logger   core.Logger
	endpoint string // calendar API base path, tests only
}

var _ appointment.CalendarSyncer = (*Service)(nil) // interface compliance check

func NewService(conf *core.Config, tokens TokenStore, logger core.Logger) *Service {
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     conf.Google.ClientID,
			ClientSecret: conf.Google.ClientSecret,
			RedirectURL:  conf.Google.RedirectURI,
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		},
		tokens: tokens,
		logger: logger,
	}
}

// AuthURL returns the consent page URL. The state carries the user id back to the callback.
func (svc *Service) AuthURL(userID int) (string, error) {
	if svc.oauth.ClientID == "" {
		return "", ErrNotConfigured
	}
	st, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	return svc.oauth.AuthCodeURL(st, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

func EncodeState(userID int) (string, error) {
	b, err := json.Marshal(state{UserID: userID})
	if err != nil {
		return "", errors.Wrap(err, "encoding state")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeState returns the id of the user the consent flow was started for.
func DecodeState(s string) (int, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, errors.Wrap(ErrBadState, err.Error())
	}
	var st state
	if err := json.Unmarshal(b, &st); err != nil {
		return 0, errors.Wrap(ErrBadState, err.Error())
	}
	if st.UserID <= 0 {
		return 0, ErrBadState
	}
	return st.UserID, nil
}

// Connect exchanges the callback code and stores the tokens of userID.
// The state must have been issued to userID by AuthURL.
func (svc *Service) Connect(ctx context.Context, userID int, code, st string) error {
	stateUserID, err := DecodeState(st)
	if err != nil {
		return err
	}
	if stateUserID != userID {
		return ErrOtherUser
	}
	tok, err := svc.oauth.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "exchanging google code")
	}
	tokens := user.GoogleTokens{
		AccessToken:  null.StringFrom(tok.AccessToken),
		RefreshToken: null.NewString(tok.RefreshToken, tok.RefreshToken != ""),
		CalendarID:   null.StringFrom(primaryCalendar),
	}
	return svc.tokens.SetGoogleTokens(ctx, userID, tokens)
}

// CreateEvent inserts the event in the owner's calendar. Refreshed access tokens are stored back.
func (svc *Service) CreateEvent(ctx context.Context, owner user.User, ev appointment.Event) (string, string, error) {
	if !owner.HasGoogleCalendar() {
		return "", "", ErrNotConnected
	}
	calID := owner.GoogleCalendarID.String
	if calID == "" {
		calID = primaryCalendar
	}

	tok := &oauth2.Token{
		AccessToken:  owner.GoogleAccessToken.String,
		RefreshToken: owner.GoogleRefreshToken.String,
		TokenType:    "Bearer",
	}
	if tok.RefreshToken != "" {
		// unknown expiry; let the token source refresh once up front
		tok.Expiry = time.Now().Add(-time.Second)
	}
	ts := svc.oauth.TokenSource(ctx, tok)

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if svc.endpoint != "" {
		opts = append(opts, option.WithEndpoint(svc.endpoint))
	}
	cal, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return "", "", errors.Wrap(err, "creating calendar client")
	}

	created, err := cal.Events.Insert(calID, &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{DateTime: ev.StartAt.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: ev.EndAt.UTC().Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return "", "", errors.Wrap(err, "inserting calendar event")
	}

	svc.storeRefreshed(ctx, owner, ts)
	return calID, created.Id, nil
}

func (svc *Service) storeRefreshed(ctx context.Context, owner user.User, ts oauth2.TokenSource) {
	tok, err := ts.Token()
	if err != nil || tok.AccessToken == owner.GoogleAccessToken.String {
		return
	}
	err = svc.tokens.SetGoogleTokens(ctx, owner.ID, user.GoogleTokens{
		AccessToken:  null.StringFrom(tok.AccessToken),
		RefreshToken: null.StringFrom(owner.GoogleRefreshToken.String),
		CalendarID:   owner.GoogleCalendarID,
	})
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("gcal.storeRefreshed(%d): %v", owner.ID, err), err, owner)
	}
}
