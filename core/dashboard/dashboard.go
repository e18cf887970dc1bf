// Package dashboard computes KPI figures on read from the call logs.
package dashboard

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/calllog"
)

type KPIQuery struct {
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
	AgentID   int       `json:"agentId"`
}

type KPI struct {
	TotalCalls      int     `json:"totalCalls"`
	ConnectedCalls  int     `json:"connectedCalls"`
	AppointedCalls  int     `json:"appointedCalls"`
	ConnectionRate  float64 `json:"connectionRate"`  // connected / total, %
	AppointmentRate float64 `json:"appointmentRate"` // appointed / connected, %
}

// CallCounter counts call logs by outcome.
type CallCounter interface {
	Count(ctx context.Context, filter calllog.CountFilter) (calllog.Counts, error)
}

type Service struct {
	calls CallCounter
}

func NewService(calls CallCounter) *Service {
	return &Service{calls: calls}
}

func (svc *Service) GetKPI(ctx context.Context, q KPIQuery) (KPI, error) {
	counts, err := svc.calls.Count(ctx, calllog.CountFilter{From: q.StartDate, To: q.EndDate, AgentID: q.AgentID})
	if err != nil {
		return KPI{}, err
	}
	return KPI{
		TotalCalls:      counts.Total,
		ConnectedCalls:  counts.Connected,
		AppointedCalls:  counts.Appointed,
		ConnectionRate:  core.Percent(counts.Connected, counts.Total),
		AppointmentRate: core.Percent(counts.Appointed, counts.Connected),
	}, nil
}
