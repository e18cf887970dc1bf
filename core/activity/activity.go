// Package activity records what users did to leads.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
)

// Actions
const (
	ActionStatusChanged      = "status_changed"
	ActionCallLogged         = "call_logged"
	ActionLeadsImported      = "leads_imported"
	ActionLeadsAssigned      = "leads_assigned"
	ActionAppointmentCreated = "appointment_created"
)

const DefaultLimit = 50

type Log struct {
	ID        int         `json:"id" db:"id"`
	UserID    int         `json:"userId" db:"user_id"`
	Action    string      `json:"action" db:"action"`
	LeadID    null.Int    `json:"leadId" db:"lead_id"`
	Details   null.String `json:"details" db:"details"` // JSON
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// NewLog describes an activity to record. LeadID 0 means no lead.
// Details is marshalled to JSON when set.
type NewLog struct {
	UserID  int
	Action  string
	LeadID  int
	Details interface{}
}

type Filter struct {
	UserID int `json:"userId" validate:"required"`
	Limit  int `json:"limit" validate:"omitempty,min=1,max=1000"`
}

type (
	Repository interface {
		CreateLog(ctx context.Context, l Log, exec ...core.DBExecutor) (Log, error)
		// QueryLogs returns the user's latest logs first.
		QueryLogs(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Log, error)
	}

	// Publisher forwards recorded activities to external consumers.
	Publisher interface {
		Publish(ctx context.Context, l Log) error
	}

	Service struct {
		repo   Repository
		pub    Publisher
		logger core.Logger
	}
)

// NewService returns an activity service. pub may be nil.
func NewService(repo Repository, pub Publisher, logger core.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger}
}

func (svc *Service) Record(ctx context.Context, nl NewLog, exec ...core.DBExecutor) (Log, error) {
	l := Log{
		UserID:    nl.UserID,
		Action:    nl.Action,
		LeadID:    null.NewInt(nl.LeadID, nl.LeadID != 0),
		CreatedAt: time.Now().UTC(),
	}
	if nl.Details != nil {
		details, err := json.Marshal(nl.Details)
		if err != nil {
			return Log{}, errors.Wrap(err, "marshalling activity details")
		}
		l.Details = null.StringFrom(string(details))
	}

	l, err := svc.repo.CreateLog(ctx, l, exec...)
	if err != nil {
		return Log{}, err
	}

	if svc.pub != nil {
		if err := svc.pub.Publish(ctx, l); err != nil && svc.logger != nil {
			svc.logger.Warn("activity.Publish: "+err.Error(), err)
		}
	}
	return l, nil
}

// Track records an activity that follows an already saved change. Failures are logged, not returned.
func (svc *Service) Track(ctx context.Context, nl NewLog) {
	if _, err := svc.Record(ctx, nl); err != nil && svc.logger != nil {
		svc.logger.Error(fmt.Sprintf("activity.Track(%s, user %d): %v", nl.Action, nl.UserID, err), err)
	}
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Log, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	return svc.repo.QueryLogs(ctx, filter)
}
