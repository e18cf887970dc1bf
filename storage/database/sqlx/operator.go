package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/operator"
)

// metricsUpsert counts one call in the day's metrics.
// The average duration only moves for calls with a known duration.
const metricsUpsert = `INSERT INTO operator_metrics AS m
	(user_id, date, total_calls, connected_calls, appointments_made, average_call_duration)
VALUES (:user_id, :date, 1, :connected, :appointed, :duration)
ON CONFLICT (user_id, date) DO UPDATE SET
	total_calls = m.total_calls + 1,
	connected_calls = m.connected_calls + EXCLUDED.connected_calls,
	appointments_made = m.appointments_made + EXCLUDED.appointments_made,
	average_call_duration = CASE
		WHEN EXCLUDED.average_call_duration > 0 THEN ROUND(
			CAST(m.average_call_duration * m.total_calls + EXCLUDED.average_call_duration AS NUMERIC) / (m.total_calls + 1))
		ELSE m.average_call_duration
	END`

type metricsRepository struct {
	repository
}

var _ operator.Repository = (*metricsRepository)(nil) // interface compliance check

func NewMetricsRepository(db core.DBExecutor) *metricsRepository {
	return &metricsRepository{repository{db: db}}
}

func (repo metricsRepository) GetMetrics(ctx context.Context, userID int, date string, exec ...core.DBExecutor) (operator.DailyMetrics, error) {
	exe := repo.getExec(exec)
	var m operator.DailyMetrics
	q := exe.Rebind("SELECT * FROM operator_metrics WHERE user_id = ? AND date = ?")
	if err := sqlx.GetContext(ctx, exe, &m, q, userID, date); err != nil {
		return operator.DailyMetrics{}, trapNoRowsErr(err, operator.ErrNotFound, "finding operator metrics")
	}
	return m, nil
}

func (repo metricsRepository) QueryMetrics(ctx context.Context, filter operator.MetricsFilter, exec ...core.DBExecutor) ([]operator.DailyMetrics, error) {
	var conds clauses
	if filter.UserID != 0 {
		conds.add("user_id = ?", filter.UserID)
	}
	if filter.From != "" {
		conds.add("date >= ?", filter.From)
	}
	if filter.To != "" {
		conds.add("date <= ?", filter.To)
	}

	exe := repo.getExec(exec)
	metrics := make([]operator.DailyMetrics, 0)
	q := exe.Rebind("SELECT * FROM operator_metrics" + conds.where() + " ORDER BY date ASC")
	if err := sqlx.SelectContext(ctx, exe, &metrics, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying operator metrics")
	}
	return metrics, nil
}

func (repo metricsRepository) RecordCall(ctx context.Context, userID int, date string, call operator.Call, exec ...core.DBExecutor) error {
	arg := map[string]interface{}{
		"user_id":   userID,
		"date":      date,
		"connected": boolToInt(call.Connected),
		"appointed": boolToInt(call.Appointed),
		"duration":  call.Duration,
	}
	exe := repo.getExec(exec)
	q, args, err := exe.BindNamed(metricsUpsert, arg)
	if err != nil {
		return errors.Wrap(err, "binding operator metrics upsert")
	}
	if _, err := exe.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "recording call in operator metrics")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
