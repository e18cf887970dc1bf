package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateLog(_ context.Context, l activity.Log, _ ...core.DBExecutor) (activity.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = repo.db.nextID("activity_logs")
	repo.db.activityLogs[l.ID] = &l
	return l, nil
}

func (repo *activityRepository) QueryLogs(_ context.Context, filter activity.Filter, _ ...core.DBExecutor) ([]activity.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]activity.Log, 0)
	for _, l := range repo.db.activityLogs {
		if l.UserID == filter.UserID {
			logs = append(logs, *l)
		}
	}
	sortBy(logs, createdAtDesc,
		func(l activity.Log, _ string) (time.Time, bool) { return l.CreatedAt, true },
		func(l activity.Log) int { return l.ID })

	limit := filter.Limit
	if limit <= 0 {
		limit = activity.DefaultLimit
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
