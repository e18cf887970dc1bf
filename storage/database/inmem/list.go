package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/campaign"
	"github.com/trezcool/teleapo/core/list"
)

type listRepository struct {
	db *DB
}

var _ list.Repository = (*listRepository)(nil) // interface compliance check

func NewListRepository(db *DB) *listRepository {
	return &listRepository{db: db}
}

func (repo *listRepository) CreateList(_ context.Context, l list.List, _ ...core.DBExecutor) (list.List, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = repo.db.nextID("lists")
	repo.db.lists[l.ID] = &l
	return l, nil
}

func (repo *listRepository) GetList(_ context.Context, id int, _ ...core.DBExecutor) (list.List, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lists[id]; ok {
		return *l, nil
	}
	return list.List{}, list.ErrNotFound
}

func (repo *listRepository) QueryLists(_ context.Context, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]list.List, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lists := make([]list.List, 0, len(repo.db.lists))
	for _, l := range repo.db.lists {
		lists = append(lists, *l)
	}
	sortBy(lists, ordering,
		func(l list.List, _ string) (time.Time, bool) { return l.CreatedAt, true },
		func(l list.List) int { return l.ID })
	return lists, nil
}

func (repo *listRepository) IncrementTotalCount(_ context.Context, id, n int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	l, ok := repo.db.lists[id]
	if !ok {
		return list.ErrNotFound
	}
	l.TotalCount += n
	l.UpdatedAt = time.Now().UTC()
	return nil
}

type campaignRepository struct {
	db *DB
}

var _ campaign.Repository = (*campaignRepository)(nil) // interface compliance check

func NewCampaignRepository(db *DB) *campaignRepository {
	return &campaignRepository{db: db}
}

func (repo *campaignRepository) CreateCampaign(_ context.Context, c campaign.Campaign, _ ...core.DBExecutor) (campaign.Campaign, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextID("campaigns")
	repo.db.campaigns[c.ID] = &c
	return c, nil
}

func (repo *campaignRepository) GetCampaign(_ context.Context, id int, _ ...core.DBExecutor) (campaign.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.campaigns[id]; ok {
		return *c, nil
	}
	return campaign.Campaign{}, campaign.ErrNotFound
}

func (repo *campaignRepository) QueryCampaigns(_ context.Context, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]campaign.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	campaigns := make([]campaign.Campaign, 0, len(repo.db.campaigns))
	for _, c := range repo.db.campaigns {
		campaigns = append(campaigns, *c)
	}
	sortBy(campaigns, ordering,
		func(c campaign.Campaign, _ string) (time.Time, bool) { return c.CreatedAt, true },
		func(c campaign.Campaign) int { return c.ID })
	return campaigns, nil
}
