package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core/session"
	"github.com/trezcool/teleapo/core/user"
	emailsvc "github.com/trezcool/teleapo/services/email"
	gcalsvc "github.com/trezcool/teleapo/services/gcal"
	oauthsvc "github.com/trezcool/teleapo/services/oauth"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuth_Me(t *testing.T) {
	f := setup(t)

	t.Run("anonymous", func(t *testing.T) {
		rec := f.query(t, "auth.me", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result": {"data": null}}`, rec.Body.String())
	})

	t.Run("signed in", func(t *testing.T) {
		var me user.User
		result(t, f.query(t, "auth.me", nil, &f.manager), &me)
		assert.Equal(t, f.manager.ID, me.ID)
		assert.Equal(t, user.RoleManager, me.Role)
		assert.True(t, me.LastSignedIn.After(f.manager.LastSignedIn) || me.LastSignedIn.Equal(f.manager.LastSignedIn))
	})

	t.Run("invalid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/trpc/auth.me", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "not-a-jwt"})
		rec := f.serve(t, req, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result": {"data": null}}`, rec.Body.String())
	})

	t.Run("unknown user", func(t *testing.T) {
		// no identity provider to sync the user from
		token, err := f.sessions.Create("open-ghost", "ghost")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/trpc/auth.me", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
		rec := f.serve(t, req, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result": {"data": null}}`, rec.Body.String())
		assert.Equal(t, 1, f.logger.Count("warn"))
	})
}

func TestAuth_Logout(t *testing.T) {
	f := setup(t)

	rec := f.mutate(t, "auth.logout", nil, &f.agent)
	var out map[string]bool
	result(t, rec, &out)
	assert.True(t, out["success"])

	cookie := findCookie(rec, session.CookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
}

func TestOAuthCallback(t *testing.T) {
	f := setup(t)

	tests := []httpTest{
		{
			name:     "missing code",
			path:     "/api/oauth/callback?state=abc",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "code and state are required"}`),
		},
		{
			name:     "missing state",
			path:     "/api/oauth/callback?code=abc",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "code and state are required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(t, httptest.NewRequest(http.MethodGet, tt.path, nil), nil)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("no openId", func(t *testing.T) {
		f.oauth.token = oauthsvc.TokenResponse{AccessToken: "access"}
		f.oauth.info = oauthsvc.UserInfo{Name: "Nobody"}
		rec := f.serve(t, httptest.NewRequest(http.MethodGet, "/api/oauth/callback?code=c&state=s", nil), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "openId missing from user info"}`, rec.Body.String())
	})

	t.Run("exchange failure", func(t *testing.T) {
		f.oauth.err = errors.New("invalid code")
		defer func() { f.oauth.err = nil }()

		rec := f.serve(t, httptest.NewRequest(http.MethodGet, "/api/oauth/callback?code=c&state=s", nil), nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error": "OAuth callback failed"}`, rec.Body.String())
		assert.Nil(t, findCookie(rec, session.CookieName))
	})

	t.Run("success", func(t *testing.T) {
		f.oauth.token = oauthsvc.TokenResponse{AccessToken: "access"}
		f.oauth.info = oauthsvc.UserInfo{OpenID: "open-new", Name: "Newcomer", Email: "new@teleapo.test", Platform: "REGISTERED_PLATFORM_GOOGLE"}

		req := httptest.NewRequest(http.MethodGet, "/api/oauth/callback?code=c&state=s", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := f.serve(t, req, nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		cookie := findCookie(rec, session.CookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
		assert.True(t, cookie.Secure)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, int(f.sessions.MaxAge().Seconds()), cookie.MaxAge)

		claims, err := f.sessions.Verify(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, "open-new", claims.OpenID)

		// the new session authenticates the synced user
		var me user.User
		req = httptest.NewRequest(http.MethodGet, "/api/trpc/auth.me", nil)
		req.AddCookie(cookie)
		result(t, f.serve(t, req, nil), &me)
		assert.Equal(t, "open-new", me.OpenID)
		assert.Equal(t, "new@teleapo.test", me.Email.String)
		assert.Equal(t, user.RoleAgent, me.Role)
	})
}

func TestGoogleCallback(t *testing.T) {
	f := setup(t)
	agentState, err := gcalsvc.EncodeState(f.agent.ID)
	require.NoError(t, err)
	callback := func(code, state string) *http.Request {
		q := url.Values{"code": {code}, "state": {state}}
		return httptest.NewRequest(http.MethodGet, "/api/google/callback?"+q.Encode(), nil)
	}

	rec := f.serve(t, httptest.NewRequest(http.MethodGet, "/api/google/callback?code=g-code", nil), &f.agent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.serve(t, callback("g-code", agentState), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a state issued to the agent cannot connect the manager's calendar, and vice versa
	rec = f.serve(t, callback("g-code", agentState), &f.manager)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "state does not belong to the signed-in user"}`, rec.Body.String())
	rec = f.serve(t, callback("g-code", "garbage"), &f.agent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.calendar.connected)

	rec = f.serve(t, callback("g-code", agentState), &f.agent)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:3000/settings?calendar=connected", rec.Header().Get("Location"))
	assert.Equal(t, map[int]string{f.agent.ID: "g-code"}, f.calendar.connected)
}

func TestPlaces(t *testing.T) {
	f := setup(t)

	tests := []httpTest{
		{
			name:     "anonymous",
			path:     "/api/places?placeId=ChIJ123",
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"error": "Please login (10001)"}`),
		},
		{
			name:     "missing place id",
			path:     "/api/places",
			user:     &f.viewer,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "missing placeId"}`),
		},
		{
			name:     "success",
			path:     "/api/places?placeId=ChIJ123",
			user:     &f.viewer,
			wantCode: http.StatusOK,
			wantData: []byte(`{"displayName": {"text": "ACME"}}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(t, httptest.NewRequest(http.MethodGet, tt.path, nil), tt.user)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestGenerate(t *testing.T) {
	f := setup(t)

	rec := f.serve(t, newJSONRequest(http.MethodPost, "/api/generate", []byte(`{"prompt": "hi"}`)), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.serve(t, newJSONRequest(http.MethodPost, "/api/generate", []byte(`{"prompt": "Write a greeting"}`)), &f.agent)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text": "Hello!", "finishReason": "STOP"}`, rec.Body.String())
	assert.Equal(t, "Write a greeting", f.llm.prompt)
}

func TestSendEmail(t *testing.T) {
	f := setup(t)
	body := []byte(`{"to": "client@example.com", "subject": "Meeting", "html": "<p>See you</p>"}`)

	tests := []httpTest{
		{
			name:     "anonymous",
			body:     body,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "agent",
			body:     body,
			user:     &f.agent,
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error": "Manager access required"}`),
		},
		{
			name:     "invalid input",
			body:     []byte(`{"to": "not-an-email", "subject": " ", "html": "<p>x</p>"}`),
			user:     &f.manager,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "manager",
			body:     body,
			user:     &f.manager,
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok": true}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			rec := f.serve(t, newJSONRequest(http.MethodPost, "/api/send-email", tt.body), tt.user)
			checkCodeAndData(t, tt, rec)

			msg, sent := emailsvc.LastSentMessage()
			if tt.wantCode != http.StatusOK {
				assert.False(t, sent)
				return
			}
			require.True(t, sent)
			assert.Equal(t, "client@example.com", msg.To[0].Address)
			assert.Contains(t, msg.Subject, "Meeting")
			assert.Contains(t, msg.HTMLContent, "See you")
		})
	}
}
