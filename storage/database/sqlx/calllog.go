package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/calllog"
	"github.com/trezcool/teleapo/core/lead"
)

const callLogInsert = `INSERT INTO call_logs (lead_id, agent_id, result, memo, next_action_at, duration, created_at)
VALUES (:lead_id, :agent_id, :result, :memo, :next_action_at, :duration, :created_at) RETURNING *`

type callLogRepository struct {
	repository
}

var _ calllog.Repository = (*callLogRepository)(nil) // interface compliance check

func NewCallLogRepository(db core.DBExecutor) *callLogRepository {
	return &callLogRepository{repository{db: db}}
}

func (repo callLogRepository) CreateCallLog(ctx context.Context, cl calllog.CallLog, exec ...core.DBExecutor) (calllog.CallLog, error) {
	var created calllog.CallLog
	if err := namedGet(ctx, repo.getExec(exec), &created, callLogInsert, cl); err != nil {
		return calllog.CallLog{}, errors.Wrap(err, "inserting call log")
	}
	return created, nil
}

func (repo callLogRepository) QueryCallLogs(ctx context.Context, filter calllog.Filter, exec ...core.DBExecutor) ([]calllog.CallLog, error) {
	var conds clauses
	if filter.LeadID != 0 {
		conds.add("lead_id = ?", filter.LeadID)
	}
	if filter.AgentID != 0 {
		conds.add("agent_id = ?", filter.AgentID)
	}

	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT * FROM call_logs" + conds.where() + " ORDER BY created_at DESC, id DESC")
	logs := make([]calllog.CallLog, 0)
	if err := sqlx.SelectContext(ctx, exe, &logs, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying call logs")
	}
	return logs, nil
}

func (repo callLogRepository) CountCallLogs(ctx context.Context, filter calllog.CountFilter, exec ...core.DBExecutor) (calllog.Counts, error) {
	var conds clauses
	if !filter.From.IsZero() {
		conds.add("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conds.add("created_at <= ?", filter.To.UTC())
	}
	if filter.AgentID != 0 {
		conds.add("agent_id = ?", filter.AgentID)
	}

	q := `SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE result = ?) AS connected,
	COUNT(*) FILTER (WHERE result = ?) AS appointed
FROM call_logs` + conds.where()
	args := append([]interface{}{lead.StatusConnected, lead.StatusAppointed}, conds.args...)

	exe := repo.getExec(exec)
	var counts calllog.Counts
	if err := sqlx.GetContext(ctx, exe, &counts, exe.Rebind(q), args...); err != nil {
		return calllog.Counts{}, errors.Wrap(err, "counting call logs")
	}
	return counts, nil
}
