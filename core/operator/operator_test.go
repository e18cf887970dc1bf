package operator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/operator"
	"github.com/trezcool/teleapo/core/user"
	inmemdb "github.com/trezcool/teleapo/storage/database/inmem"
	testutil "github.com/trezcool/teleapo/tests"
)

func TestDailyMetrics_WithCall(t *testing.T) {
	tests := []struct {
		name string
		m    operator.DailyMetrics
		call operator.Call
		want operator.DailyMetrics
	}{
		{
			name: "first call",
			call: operator.Call{Connected: true, Duration: 45},
			want: operator.DailyMetrics{TotalCalls: 1, ConnectedCalls: 1, AverageCallDuration: 45},
		},
		{
			name: "unknown duration keeps the average",
			m:    operator.DailyMetrics{TotalCalls: 2, AverageCallDuration: 40},
			call: operator.Call{},
			want: operator.DailyMetrics{TotalCalls: 3, AverageCallDuration: 40},
		},
		{
			name: "running average is rounded",
			m:    operator.DailyMetrics{TotalCalls: 2, ConnectedCalls: 1, AverageCallDuration: 10},
			call: operator.Call{Connected: true, Appointed: true, Duration: 11},
			want: operator.DailyMetrics{TotalCalls: 3, ConnectedCalls: 2, AppointmentsMade: 1, AverageCallDuration: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.WithCall(tt.call))
		})
	}
}

func setup(t *testing.T) (*operator.Service, user.Repository) {
	t.Helper()
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	userSvc := user.NewService(users, nil, nil, testutil.NewLoggerMock(), "")
	return operator.NewService(inmemdb.NewMetricsRepository(db), userSvc), users
}

func TestService_QueryAll(t *testing.T) {
	ctx := context.Background()
	svc, users := setup(t)
	agent := testutil.CreateUser(t, users, "agent", user.RoleAgent)
	idle := testutil.CreateUser(t, users, "idle", user.RoleManager)
	testutil.CreateUser(t, users, "viewer", user.RoleViewer)

	require.NoError(t, svc.RecordCall(ctx, agent.ID, time.Now(), operator.Call{Connected: true, Duration: 30}))
	require.NoError(t, svc.RecordCall(ctx, agent.ID, time.Now().AddDate(0, 0, -1), operator.Call{}))

	ops, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	byID := make(map[int]operator.Operator)
	for _, op := range ops {
		byID[op.ID] = op
	}
	require.NotNil(t, byID[agent.ID].TodayMetrics)
	assert.Equal(t, 1, byID[agent.ID].TodayMetrics.TotalCalls)
	assert.Equal(t, core.DateString(time.Now()), byID[agent.ID].TodayMetrics.Date)
	assert.Nil(t, byID[idle.ID].TodayMetrics)
}

func TestService_GetPerformance(t *testing.T) {
	ctx := context.Background()
	svc, users := setup(t)
	agent := testutil.CreateUser(t, users, "agent", user.RoleAgent)
	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	for _, c := range []struct {
		at   time.Time
		call operator.Call
	}{
		{day1, operator.Call{Connected: true, Duration: 60}},
		{day1, operator.Call{Duration: 20}},
		{day2, operator.Call{Connected: true, Appointed: true, Duration: 100}},
		{day2, operator.Call{}},
		{day2.AddDate(0, 0, 5), operator.Call{Connected: true}},
	} {
		require.NoError(t, svc.RecordCall(ctx, agent.ID, c.at, c.call))
	}

	perf, err := svc.GetPerformance(ctx, operator.PerformanceQuery{UserID: agent.ID, StartDate: day1, EndDate: day2})
	require.NoError(t, err)
	assert.Equal(t, 4, perf.TotalCalls)
	assert.Equal(t, 2, perf.ConnectedCalls)
	assert.Equal(t, 1, perf.AppointmentsMade)
	assert.Equal(t, 50.0, perf.ConnectionRate)
	assert.Equal(t, 50.0, perf.AppointmentRate)
	assert.Equal(t, 70, perf.AverageCallDuration) // mean of the daily averages 40 and 100
	require.Len(t, perf.DailyMetrics, 2)
	assert.Equal(t, "2024-05-01", perf.DailyMetrics[0].Date)

	perf, err = svc.GetPerformance(ctx, operator.PerformanceQuery{UserID: agent.ID, StartDate: day1.AddDate(-1, 0, 0), EndDate: day1.AddDate(-1, 0, 1)})
	require.NoError(t, err)
	assert.Zero(t, perf.TotalCalls)
	assert.Zero(t, perf.ConnectionRate)
	assert.NotNil(t, perf.DailyMetrics)
}
