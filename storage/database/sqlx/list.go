package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/campaign"
	"github.com/trezcool/teleapo/core/list"
)

const (
	listInsert = `INSERT INTO lists (name, description, total_count, created_by, created_at, updated_at)
VALUES (:name, :description, :total_count, :created_by, :created_at, :updated_at) RETURNING *`

	campaignInsert = `INSERT INTO campaigns (name, description, created_by, created_at, updated_at)
VALUES (:name, :description, :created_by, :created_at, :updated_at) RETURNING *`
)

type listRepository struct {
	repository
}

var _ list.Repository = (*listRepository)(nil) // interface compliance check

func NewListRepository(db core.DBExecutor) *listRepository {
	return &listRepository{repository{db: db}}
}

func (repo listRepository) CreateList(ctx context.Context, l list.List, exec ...core.DBExecutor) (list.List, error) {
	var created list.List
	if err := namedGet(ctx, repo.getExec(exec), &created, listInsert, l); err != nil {
		return list.List{}, errors.Wrap(err, "inserting list")
	}
	return created, nil
}

func (repo listRepository) GetList(ctx context.Context, id int, exec ...core.DBExecutor) (list.List, error) {
	exe := repo.getExec(exec)
	var l list.List
	if err := sqlx.GetContext(ctx, exe, &l, exe.Rebind("SELECT * FROM lists WHERE id = ?"), id); err != nil {
		return list.List{}, trapNoRowsErr(err, list.ErrNotFound, "finding list")
	}
	return l, nil
}

func (repo listRepository) QueryLists(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]list.List, error) {
	lists := make([]list.List, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &lists, "SELECT * FROM lists"+core.OrderBy(ordering...)); err != nil {
		return nil, errors.Wrap(err, "querying lists")
	}
	return lists, nil
}

func (repo listRepository) IncrementTotalCount(ctx context.Context, id, n int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := exe.Rebind("UPDATE lists SET total_count = total_count + ?, updated_at = ? WHERE id = ?")
	res, err := exe.ExecContext(ctx, q, n, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "incrementing list total count")
	}
	return checkAffected(res, list.ErrNotFound)
}

type campaignRepository struct {
	repository
}

var _ campaign.Repository = (*campaignRepository)(nil) // interface compliance check

func NewCampaignRepository(db core.DBExecutor) *campaignRepository {
	return &campaignRepository{repository{db: db}}
}

func (repo campaignRepository) CreateCampaign(ctx context.Context, c campaign.Campaign, exec ...core.DBExecutor) (campaign.Campaign, error) {
	var created campaign.Campaign
	if err := namedGet(ctx, repo.getExec(exec), &created, campaignInsert, c); err != nil {
		return campaign.Campaign{}, errors.Wrap(err, "inserting campaign")
	}
	return created, nil
}

func (repo campaignRepository) GetCampaign(ctx context.Context, id int, exec ...core.DBExecutor) (campaign.Campaign, error) {
	exe := repo.getExec(exec)
	var c campaign.Campaign
	if err := sqlx.GetContext(ctx, exe, &c, exe.Rebind("SELECT * FROM campaigns WHERE id = ?"), id); err != nil {
		return campaign.Campaign{}, trapNoRowsErr(err, campaign.ErrNotFound, "finding campaign")
	}
	return c, nil
}

func (repo campaignRepository) QueryCampaigns(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]campaign.Campaign, error) {
	campaigns := make([]campaign.Campaign, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &campaigns, "SELECT * FROM campaigns"+core.OrderBy(ordering...)); err != nil {
		return nil, errors.Wrap(err, "querying campaigns")
	}
	return campaigns, nil
}
