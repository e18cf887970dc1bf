package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/teleapo/apps/api/echo"
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
	cachesvc "github.com/trezcool/teleapo/services/cache"
	emailsvc "github.com/trezcool/teleapo/services/email"
	eventsvc "github.com/trezcool/teleapo/services/events"
	gcalsvc "github.com/trezcool/teleapo/services/gcal"
	llmsvc "github.com/trezcool/teleapo/services/llm"
	logsvc "github.com/trezcool/teleapo/services/logger"
	notificationsvc "github.com/trezcool/teleapo/services/notification"
	oauthsvc "github.com/trezcool/teleapo/services/oauth"
	placessvc "github.com/trezcool/teleapo/services/places"
	"github.com/trezcool/teleapo/storage/database"
	inmemdb "github.com/trezcool/teleapo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/teleapo/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Cleanup collects the release funcs of the resources opened by the container. Run calls them in reverse order.
type Cleanup struct {
	fns []func()
}

func (c *Cleanup) add(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *Cleanup) Run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}

// Repositories are the storage implementations of the configured database engine.
type Repositories struct {
	dig.Out

	Tx           core.Transactor
	Users        user.Repository
	Leads        lead.Repository
	Lists        list.Repository
	ListCounter  lead.ListCounter
	Campaigns    campaign.Repository
	CallLogs     calllog.Repository
	Appointments appointment.Repository
	Activities   activity.Repository
	Metrics      operator.Repository
	Projects     project.Repository
}

func newLogger(conf *core.Config, cleanup *Cleanup) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	cleanup.add(logger.Close)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB returns nil when the data lives in memory.
func newDB(conf *core.Config, loggerParam DBLoggerParam, cleanup *Cleanup) *sqlx.DB {
	if conf.Database.Engine == "memory" {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on shutdown")
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	cleanup.add(func() {
		if err := db.Close(); err != nil {
			loggerParam.Logger.Error("Failed to close", err)
		}
	})
	return db
}

func newRepositories(db *sqlx.DB) Repositories {
	if db == nil {
		mem := inmemdb.Open()
		lists := inmemdb.NewListRepository(mem)
		return Repositories{
			Tx:           inmemdb.NewTransactor(),
			Users:        inmemdb.NewUserRepository(mem),
			Leads:        inmemdb.NewLeadRepository(mem),
			Lists:        lists,
			ListCounter:  lists,
			Campaigns:    inmemdb.NewCampaignRepository(mem),
			CallLogs:     inmemdb.NewCallLogRepository(mem),
			Appointments: inmemdb.NewAppointmentRepository(mem),
			Activities:   inmemdb.NewActivityRepository(mem),
			Metrics:      inmemdb.NewMetricsRepository(mem),
			Projects:     inmemdb.NewProjectRepository(mem),
		}
	}

	lists := sqlxrepos.NewListRepository(db)
	return Repositories{
		Tx:           database.NewTransactor(db),
		Users:        sqlxrepos.NewUserRepository(db),
		Leads:        sqlxrepos.NewLeadRepository(db),
		Lists:        lists,
		ListCounter:  lists,
		Campaigns:    sqlxrepos.NewCampaignRepository(db),
		CallLogs:     sqlxrepos.NewCallLogRepository(db),
		Appointments: sqlxrepos.NewAppointmentRepository(db),
		Activities:   sqlxrepos.NewActivityRepository(db),
		Metrics:      sqlxrepos.NewMetricsRepository(db),
		Projects:     sqlxrepos.NewProjectRepository(db),
	}
}

// newUserCache falls back to no caching when redis is not configured or not reachable.
func newUserCache(conf *core.Config, logger core.Logger, cleanup *Cleanup) user.Cache {
	if conf.Redis.Addr == "" {
		return user.NopCache{}
	}
	rdb, err := cachesvc.NewClient(context.Background(), conf)
	if err != nil {
		logger.Warn(fmt.Sprintf("user cache disabled: %v", err), err)
		return user.NopCache{}
	}
	cleanup.add(func() { _ = rdb.Close() })
	return cachesvc.NewUserCache(rdb, conf.Redis.UserTTL)
}

// newActivityPublisher returns nil when no kafka broker is configured.
func newActivityPublisher(conf *core.Config, logger core.Logger, cleanup *Cleanup) activity.Publisher {
	pub, err := eventsvc.NewPublisher(conf)
	if err != nil {
		if err != eventsvc.ErrNoBrokers {
			logger.Warn(fmt.Sprintf("activity publishing disabled: %v", err), err)
		}
		return nil
	}
	cleanup.add(func() {
		if err := pub.Close(); err != nil {
			logger.Error("closing activity publisher", err)
		}
	})
	return pub
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lead.InitValidators(validate, translator)
	appointment.InitValidators(validate, translator)
	project.InitValidators(validate, translator)
	return validate
}

func newSessionManager(conf *core.Config) *session.Manager {
	return session.NewManager(conf.Session.Secret, conf.AppID, conf.Session.MaxAge)
}

func newUserService(conf *core.Config, repo user.Repository, cache user.Cache, idp *oauthsvc.Service, logger core.Logger) *user.Service {
	return user.NewService(repo, cache, idp, logger, conf.OwnerOpenID)
}

func newLLMService(conf *core.Config, cleanup *Cleanup) (*llmsvc.Service, error) {
	svc, err := llmsvc.NewService(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	cleanup.add(func() { _ = svc.Close() })
	return svc, nil
}

func newCalendarService(conf *core.Config, users *user.Service, logger core.Logger) *gcalsvc.Service {
	return gcalsvc.NewService(conf, users, logger)
}

// newAppointmentService only syncs calendars when the Google OAuth client is configured.
func newAppointmentService(
	conf *core.Config,
	repo appointment.Repository,
	users *user.Service,
	leads lead.Repository,
	mailSvc core.EmailService,
	cal *gcalsvc.Service,
	act *activity.Service,
	logger core.Logger,
) *appointment.Service {
	var syncer appointment.CalendarSyncer
	if conf.Google.ClientID != "" {
		syncer = cal
	}
	return appointment.NewService(repo, users, leads, mailSvc, syncer, act, logger)
}

func newDashboardService(calls *calllog.Service) *dashboard.Service {
	return dashboard.NewService(calls)
}

type serverParams struct {
	dig.In

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

	OAuth    *oauthsvc.Service
	Notifier *notificationsvc.Service
	Places   *placessvc.Service
	LLM      *llmsvc.Service
	Calendar *gcalsvc.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		Sessions:       p.Sessions,
		MailSvc:        p.MailSvc,
		UserSvc:        p.UserSvc,
		LeadSvc:        p.LeadSvc,
		CallLogSvc:     p.CallLogSvc,
		AppointmentSvc: p.AppointmentSvc,
		ListSvc:        p.ListSvc,
		CampaignSvc:    p.CampaignSvc,
		DashboardSvc:   p.DashboardSvc,
		OperatorSvc:    p.OperatorSvc,
		ActivitySvc:    p.ActivitySvc,
		ProjectSvc:     p.ProjectSvc,
		OAuth:          p.OAuth,
		Notifier:       p.Notifier,
		Places:         p.Places,
		LLM:            p.LLM,
		Calendar:       p.Calendar,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	// ambient
	must(c.Provide(core.NewConfig))
	must(c.Provide(func() *Cleanup { return new(Cleanup) }))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newUserCache))
	must(c.Provide(newActivityPublisher))

	// outbound services
	must(c.Provide(newEmailService))
	must(c.Provide(oauthsvc.NewService))
	must(c.Provide(notificationsvc.NewService))
	must(c.Provide(placessvc.NewService))
	must(c.Provide(newLLMService))
	must(c.Provide(newCalendarService))

	// core services
	must(c.Provide(newSessionManager))
	must(c.Provide(newUserService))
	must(c.Provide(activity.NewService))
	must(c.Provide(lead.NewService))
	must(c.Provide(list.NewService))
	must(c.Provide(campaign.NewService))
	must(c.Provide(operator.NewService))
	must(c.Provide(calllog.NewService))
	must(c.Provide(newAppointmentService))
	must(c.Provide(newDashboardService))
	must(c.Provide(project.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
