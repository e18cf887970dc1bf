package lead

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/user"
)

var ErrNotFound = core.NewNotFoundError("Lead not found")

type (
	Repository interface {
		CreateLead(ctx context.Context, l Lead, exec ...core.DBExecutor) (Lead, error)
		GetLead(ctx context.Context, id int, exec ...core.DBExecutor) (Lead, error)
		// FindDuplicate looks for a lead with the same phone, else the same email, else the same company and name.
		FindDuplicate(ctx context.Context, nl NewLead, exec ...core.DBExecutor) (bool, error)
		QueryLeads(ctx context.Context, filter *Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lead, error)
		UpdateLead(ctx context.Context, id int, patch Patch, exec ...core.DBExecutor) error
		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
	}

	// ListCounter keeps list totals in sync with imports.
	ListCounter interface {
		IncrementTotalCount(ctx context.Context, id, n int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		lists    ListCounter
		activity *activity.Service
	}
)

var (
	createdAtDesc = []core.DBOrdering{{Field: "created_at"}}
	nextOrdering  = []core.DBOrdering{
		{Field: "next_action_at", Ascending: true, NullsFirst: true},
		{Field: "created_at", Ascending: true},
	}
)

func NewService(repo Repository, tx core.Transactor, lists ListCounter, act *activity.Service) *Service {
	return &Service{repo: repo, tx: tx, lists: lists, activity: act}
}

// GetNext returns the owner's next lead to call, nil when there is none.
func (svc *Service) GetNext(ctx context.Context, ownerID int) (*Lead, error) {
	leads, err := svc.repo.QueryLeads(ctx, &Filter{OwnerID: ownerID, Statuses: NextStatuses, Limit: 1}, nextOrdering)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// GetByID returns nil when the lead does not exist.
func (svc *Service) GetByID(ctx context.Context, id int) (*Lead, error) {
	l, err := svc.repo.GetLead(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Lead, error) {
	return svc.repo.QueryLeads(ctx, &filter, createdAtDesc)
}

func (svc *Service) QueryByOwner(ctx context.Context, ownerID int) ([]Lead, error) {
	return svc.repo.QueryLeads(ctx, &Filter{OwnerID: ownerID}, createdAtDesc)
}

func (svc *Service) Update(ctx context.Context, ul UpdateLead) error {
	if _, err := svc.repo.GetLead(ctx, ul.ID); err != nil {
		return err
	}
	patch := Patch{
		Status:       ul.Status,
		Memo:         ul.Memo,
		NextActionAt: ul.NextActionAt,
		OwnerID:      ul.OwnerID,
	}
	if patch.IsEmpty() {
		return nil
	}
	return svc.repo.UpdateLead(ctx, ul.ID, patch)
}

// UpdateStatus records the outcome of contacting a lead. The status defaults to unreached.
func (svc *Service) UpdateStatus(ctx context.Context, actor user.User, su StatusUpdate) error {
	if _, err := svc.repo.GetLead(ctx, su.LeadID); err != nil {
		return err
	}
	if su.Status == "" {
		su.Status = StatusUnreached
	}
	now := time.Now().UTC()
	err := svc.repo.UpdateLead(ctx, su.LeadID, Patch{
		Status:          &su.Status,
		CustomStatus:    su.CustomStatus,
		Memo:            su.Memo,
		NextActionAt:    su.NextActionAt,
		LastContactedAt: &now,
	})
	if err != nil {
		return err
	}

	svc.activity.Track(ctx, activity.NewLog{
		UserID: actor.ID,
		Action: activity.ActionStatusChanged,
		LeadID: su.LeadID,
		Details: struct {
			Status       string  `json:"status"`
			CustomStatus *string `json:"customStatus,omitempty"`
			Memo         *string `json:"memo,omitempty"`
		}{su.Status, su.CustomStatus, su.Memo},
	})
	return nil
}

// Import creates the given leads, skipping duplicates, and adds the created count to the target list.
func (svc *Service) Import(ctx context.Context, actor user.User, il ImportLeads) (ImportResult, error) {
	var res ImportResult
	now := time.Now().UTC()

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		for _, nl := range il.Leads {
			nl.Clean()
			dup, err := svc.repo.FindDuplicate(ctx, nl, exec)
			if err != nil {
				return err
			}
			if dup {
				res.DuplicateCount++
				continue
			}

			_, err = svc.repo.CreateLead(ctx, Lead{
				Name:       nl.Name,
				Company:    null.NewString(nl.Company, nl.Company != ""),
				Phone:      nl.Phone,
				Email:      null.NewString(nl.Email, nl.Email != ""),
				Prefecture: null.NewString(nl.Prefecture, nl.Prefecture != ""),
				Industry:   null.NewString(nl.Industry, nl.Industry != ""),
				Memo:       null.NewString(nl.Memo, nl.Memo != ""),
				Status:     StatusUnreached,
				ListID:     null.IntFromPtr(il.ListID),
				CampaignID: null.IntFromPtr(il.CampaignID),
				CreatedAt:  now,
				UpdatedAt:  now,
			}, exec)
			if err != nil {
				return err
			}
			res.SuccessCount++
		}

		if il.ListID != nil && res.SuccessCount > 0 && svc.lists != nil {
			return svc.lists.IncrementTotalCount(ctx, *il.ListID, res.SuccessCount, exec)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	svc.activity.Track(ctx, activity.NewLog{
		UserID:  actor.ID,
		Action:  activity.ActionLeadsImported,
		Details: res,
	})
	return res, nil
}

// Assign hands the leads over to an agent and keeps a trace of who assigned them.
func (svc *Service) Assign(ctx context.Context, actor user.User, al AssignLeads) error {
	now := time.Now().UTC()

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		for _, id := range al.LeadIDs {
			if _, err := svc.repo.GetLead(ctx, id, exec); err != nil {
				return err
			}
			agentID := al.AgentID
			if err := svc.repo.UpdateLead(ctx, id, Patch{OwnerID: &agentID}, exec); err != nil {
				return err
			}
			_, err := svc.repo.CreateAssignment(ctx, Assignment{
				LeadID:     id,
				AgentID:    al.AgentID,
				AssignedBy: actor.ID,
				AssignedAt: now,
			}, exec)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	svc.activity.Track(ctx, activity.NewLog{
		UserID:  actor.ID,
		Action:  activity.ActionLeadsAssigned,
		Details: al,
	})
	return nil
}
