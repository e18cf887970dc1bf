package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
)

const activityInsert = `INSERT INTO activity_logs (user_id, action, lead_id, details, created_at)
VALUES (:user_id, :action, :lead_id, :details, :created_at) RETURNING *`

type activityRepository struct {
	repository
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db core.DBExecutor) *activityRepository {
	return &activityRepository{repository{db: db}}
}

func (repo activityRepository) CreateLog(ctx context.Context, l activity.Log, exec ...core.DBExecutor) (activity.Log, error) {
	var created activity.Log
	if err := namedGet(ctx, repo.getExec(exec), &created, activityInsert, l); err != nil {
		return activity.Log{}, errors.Wrap(err, "inserting activity log")
	}
	return created, nil
}

func (repo activityRepository) QueryLogs(ctx context.Context, filter activity.Filter, exec ...core.DBExecutor) ([]activity.Log, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = activity.DefaultLimit
	}

	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT * FROM activity_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?")
	logs := make([]activity.Log, 0)
	if err := sqlx.SelectContext(ctx, exe, &logs, q, filter.UserID, limit); err != nil {
		return nil, errors.Wrap(err, "querying activity logs")
	}
	return logs, nil
}
