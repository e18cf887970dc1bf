package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	emailsvc "github.com/trezcool/teleapo/services/email"
	gcalsvc "github.com/trezcool/teleapo/services/gcal"
	llmsvc "github.com/trezcool/teleapo/services/llm"
	notificationsvc "github.com/trezcool/teleapo/services/notification"
	oauthsvc "github.com/trezcool/teleapo/services/oauth"
	placessvc "github.com/trezcool/teleapo/services/places"
	inmemdb "github.com/trezcool/teleapo/storage/database/inmem"
	testutil "github.com/trezcool/teleapo/tests"
)

// mocks

type oauthMock struct {
	token oauthsvc.TokenResponse
	info  oauthsvc.UserInfo
	err   error
}

func (m *oauthMock) ExchangeCode(_ context.Context, code, _ string) (oauthsvc.TokenResponse, error) {
	return m.token, m.err
}

func (m *oauthMock) GetUserInfo(_ context.Context, _ string) (oauthsvc.UserInfo, error) {
	return m.info, nil
}

type notifierMock struct {
	sent []notificationsvc.Notification
}

func (m *notifierMock) NotifyOwner(_ context.Context, n notificationsvc.Notification) (bool, error) {
	if err := n.Validate(); err != nil {
		return false, err
	}
	m.sent = append(m.sent, n)
	return true, nil
}

type placesMock struct{}

func (placesMock) Get(_ context.Context, placeID string) (placessvc.Response, error) {
	if strings.TrimSpace(placeID) == "" {
		return placessvc.Response{}, placessvc.ErrMissingPlaceID
	}
	return placessvc.Response{StatusCode: http.StatusOK, Body: []byte(`{"displayName":{"text":"ACME"}}`)}, nil
}

type llmMock struct {
	prompt string
}

func (m *llmMock) Generate(_ context.Context, prompt string) (llmsvc.Generation, error) {
	m.prompt = prompt
	return llmsvc.Generation{Text: "Hello!", FinishReason: "STOP"}, nil
}

type calendarMock struct {
	authErr   error
	connected map[int]string
}

func (m *calendarMock) AuthURL(userID int) (string, error) {
	if m.authErr != nil {
		return "", m.authErr
	}
	return "https://accounts.google.test/auth?state=" + strconv.Itoa(userID), nil
}

func (m *calendarMock) Connect(_ context.Context, userID int, code, state string) error {
	stateUserID, err := gcalsvc.DecodeState(state)
	if err != nil {
		return err
	}
	if stateUserID != userID {
		return gcalsvc.ErrOtherUser
	}
	m.connected[userID] = code
	return nil
}

// fixture

type fixture struct {
	srv      *echoapi.Server
	conf     *core.Config
	logger   *testutil.LoggerMock
	sessions *session.Manager
	users    user.Repository
	leads    lead.Repository
	oauth    *oauthMock
	notifier *notifierMock
	llm      *llmMock
	calendar *calendarMock

	admin   user.User
	manager user.User
	agent   user.User
	viewer  user.User
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.NewConfig()
	conf.Server.DisableReqLogs = true
	logger := testutil.NewLoggerMock()
	validate, translator := testutil.NewValidatorWithTranslator()
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	// set up DB & repos
	db := inmemdb.Open()
	tx := inmemdb.NewTransactor()
	usrRepo := inmemdb.NewUserRepository(db)
	leadRepo := inmemdb.NewLeadRepository(db)
	listRepo := inmemdb.NewListRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, nil, nil, logger, "")
	actSvc := activity.NewService(inmemdb.NewActivityRepository(db), nil, logger)
	opSvc := operator.NewService(inmemdb.NewMetricsRepository(db), usrSvc)
	clSvc := calllog.NewService(inmemdb.NewCallLogRepository(db), tx, leadRepo, opSvc, actSvc)

	f := &fixture{
		conf:     conf,
		logger:   logger,
		sessions: session.NewManager(conf.Session.Secret, conf.AppID, conf.Session.MaxAge),
		users:    usrRepo,
		leads:    leadRepo,
		oauth:    &oauthMock{},
		notifier: &notifierMock{},
		llm:      &llmMock{},
		calendar: &calendarMock{connected: make(map[int]string)},
	}

	// set up server
	f.srv = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Sessions:       f.sessions,
		MailSvc:        mailSvc,
		UserSvc:        usrSvc,
		LeadSvc:        lead.NewService(leadRepo, tx, listRepo, actSvc),
		CallLogSvc:     clSvc,
		AppointmentSvc: appointment.NewService(inmemdb.NewAppointmentRepository(db), usrSvc, leadRepo, mailSvc, nil, actSvc, logger),
		ListSvc:        list.NewService(listRepo),
		CampaignSvc:    campaign.NewService(inmemdb.NewCampaignRepository(db)),
		DashboardSvc:   dashboard.NewService(clSvc),
		OperatorSvc:    opSvc,
		ActivitySvc:    actSvc,
		ProjectSvc:     project.NewService(inmemdb.NewProjectRepository(db), tx),
		OAuth:          f.oauth,
		Notifier:       f.notifier,
		Places:         placesMock{},
		LLM:            f.llm,
		Calendar:       f.calendar,
	})

	f.admin = testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin)
	f.manager = testutil.CreateUser(t, usrRepo, "manager", user.RoleManager)
	f.agent = testutil.CreateUser(t, usrRepo, "agent", user.RoleAgent)
	f.viewer = testutil.CreateUser(t, usrRepo, "viewer", user.RoleViewer)
	return f
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := f.sessions.Create(usr.OpenID, usr.Name.String)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// serve runs the request with the session of usr, if any.
func (f *fixture) serve(t *testing.T, req *http.Request, usr *user.User) *httptest.ResponseRecorder {
	t.Helper()
	if usr != nil {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: f.token(t, *usr)})
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

// query calls a query procedure.
func (f *fixture) query(t *testing.T, path string, input interface{}, usr *user.User) *httptest.ResponseRecorder {
	t.Helper()
	target := "/api/trpc/" + path
	if input != nil {
		target += "?input=" + url.QueryEscape(string(marchallObj(t, input)))
	}
	return f.serve(t, httptest.NewRequest(http.MethodGet, target, nil), usr)
}

// mutate calls a mutation procedure.
func (f *fixture) mutate(t *testing.T, path string, input interface{}, usr *user.User) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(http.MethodPost, "/api/trpc/"+path, marchallObj(t, input))
	return f.serve(t, req, usr)
}

func newJSONRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type rpcErr struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Data    struct {
			Code        string            `json:"code"`
			HTTPStatus  int               `json:"httpStatus"`
			Path        string            `json:"path"`
			FieldErrors map[string]string `json:"fieldErrors"`
		} `json:"data"`
	} `json:"error"`
}

// result decodes the data of a successful call into dst.
func result(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env struct {
		Result struct {
			Data json.RawMessage `json:"data"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Result.Data, dst))
}

func rpcError(t *testing.T, rec *httptest.ResponseRecorder) rpcErr {
	t.Helper()
	var e rpcErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	user     *user.User
	wantCode int
	wantData []byte
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code)
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
