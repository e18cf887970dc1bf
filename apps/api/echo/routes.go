package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	gcalsvc "github.com/trezcool/teleapo/services/gcal"
	placessvc "github.com/trezcool/teleapo/services/places"
)

var (
	errNoCodeOrState  = echo.NewHTTPError(http.StatusBadRequest, "code and state are required")
	errNoOpenID       = echo.NewHTTPError(http.StatusBadRequest, "openId missing from user info")
	errOAuthFailed    = echo.NewHTTPError(http.StatusInternalServerError, "OAuth callback failed")
	errNoPlaceID      = echo.NewHTTPError(http.StatusBadRequest, placessvc.ErrMissingPlaceID.Error())
	errCalendarFailed = echo.NewHTTPError(http.StatusInternalServerError, "Google Calendar connection failed")
	errCalendarState  = echo.NewHTTPError(http.StatusBadRequest, "state does not belong to the signed-in user")
)

type (
	generateInput struct {
		Prompt string `json:"prompt"`
	}

	sendEmailInput struct {
		To      string `json:"to" validate:"required,email"`
		Subject string `json:"subject" validate:"notblank"`
		HTML    string `json:"html" validate:"required"`
	}
)

func (s *Server) registerRoutes(g *echo.Group) {
	g.GET("/oauth/callback", s.oauthCallback)
	g.GET("/google/callback", s.googleCallback)
	g.GET("/places", s.places, requireUser)
	g.POST("/generate", s.generate, requireUser)
	g.POST("/send-email", s.sendEmail, requireManager)
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if getContextUser(ctx) == nil {
			return errHttpUnauthorized
		}
		return next(ctx)
	}
}

func requireManager(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr := getContextUser(ctx)
		if usr == nil {
			return errHttpUnauthorized
		}
		if !usr.IsManager() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// oauthCallback completes the login flow: it signs the user in and sets the session cookie.
func (s *Server) oauthCallback(ctx echo.Context) error {
	code, state := ctx.QueryParam("code"), ctx.QueryParam("state")
	if code == "" || state == "" {
		return errNoCodeOrState
	}
	reqCtx := ctx.Request().Context()

	fail := func(err error) error {
		s.Logger.Error(fmt.Sprintf("oauth callback: %v", err), err)
		return errOAuthFailed
	}

	tok, err := s.OAuth.ExchangeCode(reqCtx, code, state)
	if err != nil {
		return fail(errors.Wrap(err, "exchanging code"))
	}
	info, err := s.OAuth.GetUserInfo(reqCtx, tok.AccessToken)
	if err != nil {
		return fail(errors.Wrap(err, "getting user info"))
	}
	if info.OpenID == "" {
		return errNoOpenID
	}

	usr, err := s.UserSvc.SyncIdentity(reqCtx, info.Identity(), time.Now().UTC())
	if err != nil {
		return fail(errors.Wrap(err, "upserting user"))
	}
	token, err := s.Sessions.Create(usr.OpenID, info.Name)
	if err != nil {
		return fail(errors.Wrap(err, "creating session"))
	}
	s.setSessionCookie(ctx, token)
	return ctx.Redirect(http.StatusFound, "/")
}

// googleCallback stores the calendar tokens of the signed-in user who started the consent flow.
func (s *Server) googleCallback(ctx echo.Context) error {
	code, state := ctx.QueryParam("code"), ctx.QueryParam("state")
	if code == "" || state == "" {
		return errNoCodeOrState
	}
	usr := getContextUser(ctx)
	if usr == nil {
		return errHttpUnauthorized
	}
	if err := s.Calendar.Connect(ctx.Request().Context(), usr.ID, code, state); err != nil {
		switch errors.Cause(err) {
		case gcalsvc.ErrBadState, gcalsvc.ErrOtherUser:
			s.Logger.Warn(fmt.Sprintf("google callback(%d): %v", usr.ID, err), err, *usr)
			return errCalendarState
		}
		s.Logger.Error(fmt.Sprintf("google callback: %v", err), err, *usr)
		return errCalendarFailed
	}
	return ctx.Redirect(http.StatusFound, s.Conf.FrontendBaseURL+"/settings?calendar=connected")
}

// places forwards the Google Places reply as is.
func (s *Server) places(ctx echo.Context) error {
	res, err := s.Places.Get(ctx.Request().Context(), ctx.QueryParam("placeId"))
	if err != nil {
		if err == placessvc.ErrMissingPlaceID {
			return errNoPlaceID
		}
		return errors.Wrap(err, "fetching place")
	}
	return ctx.JSONBlob(res.StatusCode, res.Body)
}

func (s *Server) generate(ctx echo.Context) error {
	var in generateInput
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	gen, err := s.LLM.Generate(ctx.Request().Context(), in.Prompt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, gen)
}

func (s *Server) sendEmail(ctx echo.Context) error {
	var in sendEmailInput
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	if err := s.Validate.Struct(in); err != nil {
		return err
	}
	s.MailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Address: in.To}},
		Subject:  in.Subject,
		BodyHTML: in.HTML,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
}
