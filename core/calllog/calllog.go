package calllog

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/operator"
	"github.com/trezcool/teleapo/core/user"
)

// CallLog is an immutable record of one call made to a lead.
type CallLog struct {
	ID           int         `json:"id" db:"id"`
	LeadID       int         `json:"leadId" db:"lead_id"`
	AgentID      int         `json:"agentId" db:"agent_id"`
	Result       string      `json:"result" db:"result"`
	Memo         null.String `json:"memo" db:"memo"`
	NextActionAt null.Time   `json:"nextActionAt" db:"next_action_at"`
	Duration     null.Int    `json:"duration" db:"duration"` // seconds
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
}

type NewCallLog struct {
	LeadID       int        `json:"leadId" validate:"required"`
	Result       string     `json:"result" validate:"required,leadstatus"`
	Memo         *string    `json:"memo"`
	NextActionAt *time.Time `json:"nextActionAt"`
	Duration     *int       `json:"duration" validate:"omitempty,min=0"`
}

type Filter struct {
	LeadID  int
	AgentID int
}

type CountFilter struct {
	From    time.Time
	To      time.Time
	AgentID int
}

// Counts holds the number of calls matching a CountFilter, by outcome.
type Counts struct {
	Total     int `db:"total"`
	Connected int `db:"connected"`
	Appointed int `db:"appointed"`
}

type (
	Repository interface {
		CreateCallLog(ctx context.Context, cl CallLog, exec ...core.DBExecutor) (CallLog, error)
		// QueryCallLogs returns the latest logs first.
		QueryCallLogs(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]CallLog, error)
		CountCallLogs(ctx context.Context, filter CountFilter, exec ...core.DBExecutor) (Counts, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		leads    lead.Repository
		metrics  *operator.Service
		activity *activity.Service
	}
)

func NewService(repo Repository, tx core.Transactor, leads lead.Repository, metrics *operator.Service, act *activity.Service) *Service {
	return &Service{repo: repo, tx: tx, leads: leads, metrics: metrics, activity: act}
}

// Create logs a call by the actor, moves the lead to the call result and counts the call in today's metrics.
func (svc *Service) Create(ctx context.Context, actor user.User, ncl NewCallLog) (CallLog, error) {
	now := time.Now().UTC()
	cl := CallLog{
		LeadID:    ncl.LeadID,
		AgentID:   actor.ID,
		Result:    ncl.Result,
		Memo:      null.StringFromPtr(ncl.Memo),
		Duration:  null.IntFromPtr(ncl.Duration),
		CreatedAt: now,
	}
	if ncl.NextActionAt != nil {
		cl.NextActionAt = null.TimeFrom(ncl.NextActionAt.UTC())
	}

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.leads.GetLead(ctx, ncl.LeadID, exec); err != nil {
			return err
		}

		var err error
		if cl, err = svc.repo.CreateCallLog(ctx, cl, exec); err != nil {
			return err
		}

		result := ncl.Result
		err = svc.leads.UpdateLead(ctx, ncl.LeadID, lead.Patch{Status: &result, NextActionAt: ncl.NextActionAt}, exec)
		if err != nil {
			return err
		}

		return svc.metrics.RecordCall(ctx, actor.ID, now, operator.Call{
			Connected: ncl.Result == lead.StatusConnected,
			Appointed: ncl.Result == lead.StatusAppointed,
			Duration:  cl.Duration.Int,
		}, exec)
	})
	if err != nil {
		return CallLog{}, err
	}

	svc.activity.Track(ctx, activity.NewLog{
		UserID: actor.ID,
		Action: activity.ActionCallLogged,
		LeadID: cl.LeadID,
		Details: struct {
			CallLogID int    `json:"callLogId"`
			Result    string `json:"result"`
		}{cl.ID, cl.Result},
	})
	return cl, nil
}

func (svc *Service) QueryByLead(ctx context.Context, leadID int) ([]CallLog, error) {
	return svc.repo.QueryCallLogs(ctx, Filter{LeadID: leadID})
}

func (svc *Service) QueryByAgent(ctx context.Context, agentID int) ([]CallLog, error) {
	return svc.repo.QueryCallLogs(ctx, Filter{AgentID: agentID})
}

func (svc *Service) Count(ctx context.Context, filter CountFilter) (Counts, error) {
	return svc.repo.CountCallLogs(ctx, filter)
}
