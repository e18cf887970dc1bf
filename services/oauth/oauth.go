// Package oauthsvc talks to the OAuth server users sign in with.
package oauthsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

const (
	exchangeTokenPath      = "/webdev.v1.WebDevAuthPublicService/ExchangeToken"
	getUserInfoPath        = "/webdev.v1.WebDevAuthPublicService/GetUserInfo"
	getUserInfoWithJWTPath = "/webdev.v1.WebDevAuthPublicService/GetUserInfoWithJwt"
	platformPrefix         = "REGISTERED_PLATFORM_"
	defaultTimeout         = 30 * time.Second
	maxErrorBody           = 512
)

var (
	// errors
	errNoServerURL = errors.New("OAUTH_SERVER_URL is not configured")
	errBadState    = errors.New("state is not valid base64")
)

// TokenResponse is the ExchangeToken reply.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	RefreshToken string `json:"refreshToken"`
	Scope        string `json:"scope"`
	IDToken      string `json:"idToken"`
}

// UserInfo is the GetUserInfo and GetUserInfoWithJwt reply.
type UserInfo struct {
	OpenID    string   `json:"openId"`
	ProjectID string   `json:"projectId"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Platform  string   `json:"platform"`
	Platforms []string `json:"platforms"`
}

// Identity returns the user identity, with the login method derived from the platforms.
func (ui UserInfo) Identity() user.Identity {
	return user.Identity{
		OpenID:      ui.OpenID,
		Name:        ui.Name,
		Email:       ui.Email,
		LoginMethod: DeriveLoginMethod(ui.Platforms, ui.Platform),
	}
}

type Service struct {
	baseURL string
	appID   string
	client  *rest.Client
	logger  core.Logger
}

var _ user.IdentityProvider = (*Service)(nil) // interface compliance check

func NewService(conf *core.Config, logger core.Logger) *Service {
	timeout := conf.OAuth.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if conf.OAuth.ServerURL == "" {
		logger.Error("oauth.NewService: "+errNoServerURL.Error(), errNoServerURL)
	}
	return &Service{
		baseURL: strings.TrimSuffix(conf.OAuth.ServerURL, "/"),
		appID:   conf.AppID,
		client:  &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger:  logger,
	}
}

// ExchangeCode trades an authorization code for an access token.
// state is the base64 encoded redirect URI the login flow started with.
func (svc *Service) ExchangeCode(ctx context.Context, code, state string) (TokenResponse, error) {
	redirectURI, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		return TokenResponse{}, errors.Wrap(errBadState, err.Error())
	}

	var tr TokenResponse
	err = svc.post(ctx, exchangeTokenPath, map[string]string{
		"clientId":    svc.appID,
		"grantType":   "authorization_code",
		"code":        code,
		"redirectUri": string(redirectURI),
	}, &tr)
	return tr, err
}

func (svc *Service) GetUserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	var ui UserInfo
	err := svc.post(ctx, getUserInfoPath, map[string]string{"accessToken": accessToken}, &ui)
	return ui, err
}

// GetUserInfoWithJWT resolves the identity a session token was issued for.
func (svc *Service) GetUserInfoWithJWT(ctx context.Context, token string) (user.Identity, error) {
	var ui UserInfo
	err := svc.post(ctx, getUserInfoWithJWTPath, map[string]string{"jwtToken": token, "projectId": svc.appID}, &ui)
	if err != nil {
		return user.Identity{}, err
	}
	return ui.Identity(), nil
}

func (svc *Service) post(ctx context.Context, path string, payload, dest interface{}) error {
	if svc.baseURL == "" {
		return errNoServerURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling "+path+" payload")
	}

	res, err := svc.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		Body:    body,
	})
	if err != nil {
		return errors.Wrap(err, "calling "+path)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("%s: status %d: %s", path, res.StatusCode, truncate(res.Body, maxErrorBody))
	}
	if err := json.Unmarshal([]byte(res.Body), dest); err != nil {
		return errors.Wrap(err, "decoding "+path+" response")
	}
	return nil
}

// DeriveLoginMethod returns platform when set, else the login method of the best known registered platform.
func DeriveLoginMethod(platforms []string, platform string) string {
	if platform != "" {
		return platform
	}
	if len(platforms) == 0 {
		return ""
	}

	set := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		set[p] = true
	}
	switch {
	case set[platformPrefix+"EMAIL"]:
		return "email"
	case set[platformPrefix+"GOOGLE"]:
		return "google"
	case set[platformPrefix+"APPLE"]:
		return "apple"
	case set[platformPrefix+"MICROSOFT"], set[platformPrefix+"AZURE"]:
		return "microsoft"
	case set[platformPrefix+"GITHUB"]:
		return "github"
	default:
		return strings.ToLower(platforms[0])
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
