// Package operator aggregates the daily call metrics of the users working leads.
package operator

import (
	"context"
	"math"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

var ErrNotFound = core.NewNotFoundError("Metrics not found")

type DailyMetrics struct {
	ID                  int    `json:"id" db:"id"`
	UserID              int    `json:"userId" db:"user_id"`
	Date                string `json:"date" db:"date"` // YYYY-MM-DD
	TotalCalls          int    `json:"totalCalls" db:"total_calls"`
	ConnectedCalls      int    `json:"connectedCalls" db:"connected_calls"`
	AppointmentsMade    int    `json:"appointmentsMade" db:"appointments_made"`
	AverageCallDuration int    `json:"averageCallDuration" db:"average_call_duration"` // seconds
}

// Call is one call counted in the daily metrics. Duration is in seconds, 0 when unknown.
type Call struct {
	Connected bool
	Appointed bool
	Duration  int
}

// WithCall returns m with the call counted in.
// The average duration only moves for calls with a known duration.
func (m DailyMetrics) WithCall(c Call) DailyMetrics {
	if c.Duration > 0 {
		total := m.AverageCallDuration*m.TotalCalls + c.Duration
		m.AverageCallDuration = int(math.Round(float64(total) / float64(m.TotalCalls+1)))
	}
	m.TotalCalls++
	if c.Connected {
		m.ConnectedCalls++
	}
	if c.Appointed {
		m.AppointmentsMade++
	}
	return m
}

// Operator is a user along with the metrics of the current UTC day.
type Operator struct {
	user.User
	TodayMetrics *DailyMetrics `json:"todayMetrics"`
}

type PerformanceQuery struct {
	UserID    int       `json:"userId" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

type Performance struct {
	TotalCalls          int            `json:"totalCalls"`
	ConnectedCalls      int            `json:"connectedCalls"`
	AppointmentsMade    int            `json:"appointmentsMade"`
	ConnectionRate      float64        `json:"connectionRate"`
	AppointmentRate     float64        `json:"appointmentRate"`
	AverageCallDuration int            `json:"averageCallDuration"`
	DailyMetrics        []DailyMetrics `json:"dailyMetrics"`
}

type MetricsFilter struct {
	UserID int
	From   string // YYYY-MM-DD, inclusive
	To     string // YYYY-MM-DD, inclusive
}

type (
	Repository interface {
		GetMetrics(ctx context.Context, userID int, date string, exec ...core.DBExecutor) (DailyMetrics, error)
		// QueryMetrics returns the metrics ordered by date.
		QueryMetrics(ctx context.Context, filter MetricsFilter, exec ...core.DBExecutor) ([]DailyMetrics, error)
		// RecordCall counts the call in the user's metrics of the given date, creating them if needed.
		RecordCall(ctx context.Context, userID int, date string, call Call, exec ...core.DBExecutor) error
	}

	Service struct {
		repo  Repository
		users *user.Service
	}
)

func NewService(repo Repository, users *user.Service) *Service {
	return &Service{repo: repo, users: users}
}

// QueryAll returns every non-viewer user with today's metrics, if any.
func (svc *Service) QueryAll(ctx context.Context) ([]Operator, error) {
	users, err := svc.users.QueryOperators(ctx)
	if err != nil {
		return nil, err
	}

	today := core.DateString(time.Now())
	ops := make([]Operator, 0, len(users))
	for _, usr := range users {
		op := Operator{User: usr}
		m, err := svc.repo.GetMetrics(ctx, usr.ID, today)
		switch {
		case err == nil:
			op.TodayMetrics = &m
		case !core.IsNotFound(err):
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (svc *Service) GetPerformance(ctx context.Context, pq PerformanceQuery) (Performance, error) {
	metrics, err := svc.repo.QueryMetrics(ctx, MetricsFilter{
		UserID: pq.UserID,
		From:   core.DateString(pq.StartDate),
		To:     core.DateString(pq.EndDate),
	})
	if err != nil {
		return Performance{}, err
	}

	perf := Performance{DailyMetrics: metrics}
	var durations int
	for _, m := range metrics {
		perf.TotalCalls += m.TotalCalls
		perf.ConnectedCalls += m.ConnectedCalls
		perf.AppointmentsMade += m.AppointmentsMade
		durations += m.AverageCallDuration
	}
	if len(metrics) > 0 {
		perf.AverageCallDuration = int(math.Round(float64(durations) / float64(len(metrics))))
	}
	perf.ConnectionRate = core.Percent(perf.ConnectedCalls, perf.TotalCalls)
	perf.AppointmentRate = core.Percent(perf.AppointmentsMade, perf.ConnectedCalls)
	if perf.DailyMetrics == nil {
		perf.DailyMetrics = []DailyMetrics{}
	}
	return perf, nil
}

func (svc *Service) RecordCall(ctx context.Context, userID int, at time.Time, call Call, exec ...core.DBExecutor) error {
	return svc.repo.RecordCall(ctx, userID, core.DateString(at), call, exec...)
}
