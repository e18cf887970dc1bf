package appointment_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/appointment"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/user"
	emailsvc "github.com/trezcool/teleapo/services/email"
	inmemdb "github.com/trezcool/teleapo/storage/database/inmem"
	testutil "github.com/trezcool/teleapo/tests"
)

type calendarMock struct {
	events []appointment.Event
	err    error
}

func (c *calendarMock) CreateEvent(_ context.Context, _ user.User, ev appointment.Event) (string, string, error) {
	if c.err != nil {
		return "", "", c.err
	}
	c.events = append(c.events, ev)
	return "primary", "event-1", nil
}

type fixture struct {
	svc      *appointment.Service
	repo     appointment.Repository
	users    user.Repository
	leads    lead.Repository
	calendar *calendarMock
	logger   *testutil.LoggerMock
	lead     lead.Lead
	manager  user.User
	agent    user.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := testutil.NewConfig()
	db := inmemdb.Open()
	f := fixture{
		repo:     inmemdb.NewAppointmentRepository(db),
		users:    inmemdb.NewUserRepository(db),
		leads:    inmemdb.NewLeadRepository(db),
		calendar: &calendarMock{},
		logger:   testutil.NewLoggerMock(),
	}
	core.ParseEmailTemplates(conf, f.logger)
	emailsvc.ResetSentMessages()

	f.svc = appointment.NewService(
		f.repo,
		user.NewService(f.users, nil, nil, f.logger, ""),
		f.leads,
		emailsvc.NewConsoleServiceMock(conf, f.logger),
		f.calendar,
		activity.NewService(inmemdb.NewActivityRepository(db), nil, f.logger),
		f.logger,
	)
	f.manager = testutil.CreateUser(t, f.users, "manager", user.RoleManager)
	f.agent = testutil.CreateUser(t, f.users, "agent", user.RoleAgent)
	f.lead = testutil.CreateLead(t, f.leads, "acme", f.agent.ID)
	return f
}

func (f fixture) newAppointment() appointment.NewAppointment {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Minute)
	return appointment.NewAppointment{
		LeadID:      f.lead.ID,
		OwnerUserID: f.agent.ID,
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	appt, err := f.svc.Create(ctx, f.manager, f.newAppointment())
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, appt.Status)
	assert.False(t, appt.GoogleEventID.Valid)
	assert.Empty(t, f.calendar.events)

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "agent@teleapo.test", msg.To[0].Address)
	assert.Equal(t, "New appointment: acme (acme Inc.)", msg.Subject)
	assert.True(t, strings.Contains(msg.TextContent, "Hello agent,"))
	assert.True(t, strings.Contains(msg.TextContent, "http://localhost:3000/appointments"))
	assert.Zero(t, f.logger.Count("error"))
}

func TestService_CreateSyncsCalendar(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.users.UpdateGoogleTokens(ctx, f.agent.ID, user.GoogleTokens{
		AccessToken: null.StringFrom("access"), RefreshToken: null.StringFrom("refresh"), CalendarID: null.StringFrom("primary"),
	}))
	na := f.newAppointment()
	title := "Product demo"
	na.Title = &title

	appt, err := f.svc.Create(ctx, f.manager, na)
	require.NoError(t, err)
	assert.Equal(t, "event-1", appt.GoogleEventID.String)
	require.Len(t, f.calendar.events, 1)
	assert.Equal(t, "Product demo", f.calendar.events[0].Summary)

	got, err := f.repo.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "primary", got.GoogleCalendarID.String)
}

func TestService_CreateCalendarFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.calendar.err = errors.New("token revoked")
	require.NoError(t, f.users.UpdateGoogleTokens(ctx, f.agent.ID, user.GoogleTokens{
		AccessToken: null.StringFrom("access"), RefreshToken: null.StringFrom("refresh"), CalendarID: null.StringFrom("primary"),
	}))

	appt, err := f.svc.Create(ctx, f.manager, f.newAppointment())
	require.NoError(t, err)
	assert.False(t, appt.GoogleEventID.Valid)
	assert.Equal(t, 1, f.logger.Count("warn"))
}

func TestService_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	tests := []struct {
		name   string
		modify func(na *appointment.NewAppointment)
		field  string
	}{
		{name: "end before start", modify: func(na *appointment.NewAppointment) { na.EndAt = na.StartAt }, field: "endAt"},
		{name: "unknown owner", modify: func(na *appointment.NewAppointment) { na.OwnerUserID = 404 }, field: "ownerUserId"},
		{name: "unknown lead", modify: func(na *appointment.NewAppointment) { na.LeadID = 404 }, field: "leadId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := f.newAppointment()
			tt.modify(&na)
			_, err := f.svc.Create(ctx, f.manager, na)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "want a validation error, got %v", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.field, vErr.Fields[0].Field)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	appt, err := f.svc.Create(ctx, f.manager, f.newAppointment())
	require.NoError(t, err)

	confirmed := appointment.StatusConfirmed
	require.NoError(t, f.svc.Update(ctx, appointment.UpdateAppointment{ID: appt.ID, Status: &confirmed}))
	got, err := f.svc.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, got.Status)

	early := appt.StartAt.Add(-time.Minute)
	err = f.svc.Update(ctx, appointment.UpdateAppointment{ID: appt.ID, EndAt: &early})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok)

	err = f.svc.Update(ctx, appointment.UpdateAppointment{ID: 404, Status: &confirmed})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	appt, err := f.svc.Create(ctx, f.manager, f.newAppointment())
	require.NoError(t, err)

	appts, err := f.svc.QueryByOwner(ctx, f.agent.ID)
	require.NoError(t, err)
	assert.Len(t, appts, 1)

	require.NoError(t, f.svc.Delete(ctx, appt.ID))
	got, err := f.svc.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, core.IsNotFound(f.svc.Delete(ctx, appt.ID)))
}
