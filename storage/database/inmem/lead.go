package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/lead"
)

type leadRepository struct {
	db *DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *DB) *leadRepository {
	return &leadRepository{db: db}
}

func leadField(l lead.Lead, field string) (time.Time, bool) {
	switch field {
	case "next_action_at":
		return l.NextActionAt.Time, l.NextActionAt.Valid
	case "last_contacted_at":
		return l.LastContactedAt.Time, l.LastContactedAt.Valid
	case "updated_at":
		return l.UpdatedAt, true
	default:
		return l.CreatedAt, true
	}
}

func leadID(l lead.Lead) int { return l.ID }

func (repo *leadRepository) CreateLead(_ context.Context, l lead.Lead, _ ...core.DBExecutor) (lead.Lead, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = repo.db.nextID("leads")
	repo.db.leads[l.ID] = &l
	return l, nil
}

func (repo *leadRepository) GetLead(_ context.Context, id int, _ ...core.DBExecutor) (lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.leads[id]; ok {
		return *l, nil
	}
	return lead.Lead{}, lead.ErrNotFound
}

func (repo *leadRepository) FindDuplicate(_ context.Context, nl lead.NewLead, _ ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, l := range repo.db.leads {
		switch {
		case nl.Phone != "" && l.Phone == nl.Phone:
			return true, nil
		case nl.Email != "" && l.Email.Valid && l.Email.String == nl.Email:
			return true, nil
		case nl.Company != "" && nl.Name != "" && l.Company.Valid && l.Company.String == nl.Company && l.Name == nl.Name:
			return true, nil
		}
	}
	return false, nil
}

func (repo *leadRepository) QueryLeads(_ context.Context, filter *lead.Filter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	leads := make([]lead.Lead, 0, len(repo.db.leads))
	for _, l := range repo.db.leads {
		if filter.Matches(*l) {
			leads = append(leads, *l)
		}
	}
	sortBy(leads, ordering, leadField, leadID)
	if filter != nil && filter.Limit > 0 && len(leads) > filter.Limit {
		leads = leads[:filter.Limit]
	}
	return leads, nil
}

func (repo *leadRepository) UpdateLead(_ context.Context, id int, patch lead.Patch, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	l, ok := repo.db.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	patch.Apply(l)
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *leadRepository) CreateAssignment(_ context.Context, a lead.Assignment, _ ...core.DBExecutor) (lead.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = repo.db.nextID("assignments")
	repo.db.assignments[a.ID] = &a
	return a, nil
}

// Assignments returns every recorded assignment of the lead.
func (repo *leadRepository) Assignments(leadID int) []lead.Assignment {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var as []lead.Assignment
	for _, a := range repo.db.assignments {
		if a.LeadID == leadID {
			as = append(as, *a)
		}
	}
	return as
}
