package echoapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/teleapo/core/session"
	"github.com/trezcool/teleapo/core/user"
)

const contextUserKey = "user"

// sessionMiddleware authenticates the request from its session cookie.
// Requests without a valid session go on anonymously.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			return next(ctx)
		}
		claims, err := s.Sessions.Verify(cookie.Value)
		if err != nil {
			return next(ctx)
		}
		usr, err := s.UserSvc.Authenticate(ctx.Request().Context(), claims.OpenID, cookie.Value)
		if err != nil {
			s.Logger.Warn(fmt.Sprintf("authenticating %q: %v", claims.OpenID, err), err)
			return next(ctx)
		}
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

// getContextUser returns nil for anonymous requests.
func getContextUser(ctx echo.Context) *user.User {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return &usr
	}
	return nil
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	for _, proto := range strings.Split(r.Header.Get(echo.HeaderXForwardedProto), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

func (s *Server) sessionCookie(ctx echo.Context, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   isSecureRequest(ctx.Request()),
	}
}

func (s *Server) setSessionCookie(ctx echo.Context, token string) {
	ctx.SetCookie(s.sessionCookie(ctx, token, s.Sessions.MaxAge()))
}

func (s *Server) clearSessionCookie(ctx echo.Context) {
	c := s.sessionCookie(ctx, "", 0)
	c.MaxAge = -1
	ctx.SetCookie(c)
}
