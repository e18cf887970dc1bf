package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/appointment"
	"github.com/trezcool/teleapo/core/calllog"
	"github.com/trezcool/teleapo/core/campaign"
	"github.com/trezcool/teleapo/core/dashboard"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/list"
	"github.com/trezcool/teleapo/core/operator"
	"github.com/trezcool/teleapo/core/project"
	"github.com/trezcool/teleapo/core/session"
	"github.com/trezcool/teleapo/core/user"
	llmsvc "github.com/trezcool/teleapo/services/llm"
	notificationsvc "github.com/trezcool/teleapo/services/notification"
	oauthsvc "github.com/trezcool/teleapo/services/oauth"
	placessvc "github.com/trezcool/teleapo/services/places"
)

type (
	// OAuthClient signs users in on the OAuth server.
	OAuthClient interface {
		ExchangeCode(ctx context.Context, code, state string) (oauthsvc.TokenResponse, error)
		GetUserInfo(ctx context.Context, accessToken string) (oauthsvc.UserInfo, error)
	}

	Notifier interface {
		NotifyOwner(ctx context.Context, n notificationsvc.Notification) (bool, error)
	}

	PlaceFinder interface {
		Get(ctx context.Context, placeID string) (placessvc.Response, error)
	}

	TextGenerator interface {
		Generate(ctx context.Context, prompt string) (llmsvc.Generation, error)
	}

	// CalendarConnector runs the Google Calendar consent flow.
	CalendarConnector interface {
		AuthURL(userID int) (string, error)
		Connect(ctx context.Context, userID int, code, state string) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Sessions   *session.Manager
		MailSvc    core.EmailService

		UserSvc        *user.Service
		LeadSvc        *lead.Service
		CallLogSvc     *calllog.Service
		AppointmentSvc *appointment.Service
		ListSvc        *list.Service
		CampaignSvc    *campaign.Service
		DashboardSvc   *dashboard.Service
		OperatorSvc    *operator.Service
		ActivitySvc    *activity.Service
		ProjectSvc     *project.Service

		OAuth    OAuthClient
		Notifier Notifier
		Places   PlaceFinder
		LLM      TextGenerator
		Calendar CalendarConnector
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		procs    map[string]procedure
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		procs:      make(map[string]procedure),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Server.StaticDir != "" {
		s.app.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Skipper: func(ctx echo.Context) bool { return strings.HasPrefix(ctx.Request().URL.Path, "/api/") },
			Root:    conf.Server.StaticDir,
			Index:   "index.html",
			HTML5:   true,
		}))
	}

	api := s.app.Group("/api", s.sessionMiddleware)

	s.registerRoutes(api)
	s.registerProcedures()
	api.GET("/trpc/:path", s.handleRPC)
	api.POST("/trpc/:path", s.handleRPC)
}

// Start blocks until the server stops. Unexpected failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}
