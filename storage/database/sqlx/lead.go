package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/lead"
)

const (
	leadInsert = `INSERT INTO leads (name, company, phone, email, prefecture, industry, memo, status, custom_status,
	owner_id, next_action_at, list_id, campaign_id, last_contacted_at, created_at, updated_at)
VALUES (:name, :company, :phone, :email, :prefecture, :industry, :memo, :status, :custom_status,
	:owner_id, :next_action_at, :list_id, :campaign_id, :last_contacted_at, :created_at, :updated_at) RETURNING *`

	assignmentInsert = `INSERT INTO assignments (lead_id, agent_id, assigned_by, assigned_at)
VALUES (:lead_id, :agent_id, :assigned_by, :assigned_at) RETURNING *`
)

type leadRepository struct {
	repository
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db core.DBExecutor) *leadRepository {
	return &leadRepository{repository{db: db}}
}

func (repo leadRepository) CreateLead(ctx context.Context, l lead.Lead, exec ...core.DBExecutor) (lead.Lead, error) {
	var created lead.Lead
	if err := namedGet(ctx, repo.getExec(exec), &created, leadInsert, l); err != nil {
		return lead.Lead{}, errors.Wrap(err, "inserting lead")
	}
	return created, nil
}

func (repo leadRepository) GetLead(ctx context.Context, id int, exec ...core.DBExecutor) (lead.Lead, error) {
	exe := repo.getExec(exec)
	var l lead.Lead
	if err := sqlx.GetContext(ctx, exe, &l, exe.Rebind("SELECT * FROM leads WHERE id = ?"), id); err != nil {
		return lead.Lead{}, trapNoRowsErr(err, lead.ErrNotFound, "finding lead")
	}
	return l, nil
}

func (repo leadRepository) FindDuplicate(ctx context.Context, nl lead.NewLead, exec ...core.DBExecutor) (bool, error) {
	var conds clauses
	if nl.Phone != "" {
		conds.add("phone = ?", nl.Phone)
	}
	if nl.Email != "" {
		conds.add("email = ?", nl.Email)
	}
	if nl.Company != "" && nl.Name != "" {
		conds.add("(company = ? AND name = ?)", nl.Company, nl.Name)
	}
	if conds.isEmpty() {
		return false, nil
	}

	exe := repo.getExec(exec)
	var exists bool
	q := exe.Rebind("SELECT EXISTS (SELECT 1 FROM leads" + conds.whereAny() + ")")
	if err := sqlx.GetContext(ctx, exe, &exists, q, conds.args...); err != nil {
		return false, errors.Wrap(err, "checking lead duplicates")
	}
	return exists, nil
}

func (repo leadRepository) QueryLeads(ctx context.Context, filter *lead.Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lead.Lead, error) {
	var conds clauses
	var limit string
	if filter != nil {
		if filter.Status != "" {
			conds.add("status = ?", filter.Status)
		}
		if len(filter.Statuses) > 0 {
			conds.add("status IN (?)", filter.Statuses)
		}
		if filter.OwnerID != 0 {
			conds.add("owner_id = ?", filter.OwnerID)
		}
		if filter.ListID != 0 {
			conds.add("list_id = ?", filter.ListID)
		}
		if filter.CampaignID != 0 {
			conds.add("campaign_id = ?", filter.CampaignID)
		}
		if filter.Limit > 0 {
			limit = " LIMIT ?"
			conds.args = append(conds.args, filter.Limit)
		}
	}

	exe := repo.getExec(exec)
	q, args, err := expand(exe, "SELECT * FROM leads"+conds.where()+core.OrderBy(ordering...)+limit, conds.args)
	if err != nil {
		return nil, errors.Wrap(err, "building leads query")
	}
	leads := make([]lead.Lead, 0)
	if err := sqlx.SelectContext(ctx, exe, &leads, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying leads")
	}
	return leads, nil
}

func (repo leadRepository) UpdateLead(ctx context.Context, id int, patch lead.Patch, exec ...core.DBExecutor) error {
	var sets clauses
	if patch.Status != nil {
		sets.add("status = ?", *patch.Status)
	}
	if patch.CustomStatus != nil {
		sets.add("custom_status = ?", *patch.CustomStatus)
	}
	if patch.Memo != nil {
		sets.add("memo = ?", *patch.Memo)
	}
	if patch.NextActionAt != nil {
		sets.add("next_action_at = ?", patch.NextActionAt.UTC())
	}
	if patch.OwnerID != nil {
		sets.add("owner_id = ?", *patch.OwnerID)
	}
	if patch.LastContactedAt != nil {
		sets.add("last_contacted_at = ?", patch.LastContactedAt.UTC())
	}
	sets.add("updated_at = ?", time.Now().UTC())

	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("UPDATE leads"+sets.set()+" WHERE id = ?"), append(sets.args, id)...)
	if err != nil {
		return errors.Wrap(err, "updating lead")
	}
	return checkAffected(res, lead.ErrNotFound)
}

func (repo leadRepository) CreateAssignment(ctx context.Context, a lead.Assignment, exec ...core.DBExecutor) (lead.Assignment, error) {
	var created lead.Assignment
	if err := namedGet(ctx, repo.getExec(exec), &created, assignmentInsert, a); err != nil {
		return lead.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return created, nil
}
