package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/operator"
)

type metricsRepository struct {
	db *DB
}

var _ operator.Repository = (*metricsRepository)(nil) // interface compliance check

func NewMetricsRepository(db *DB) *metricsRepository {
	return &metricsRepository{db: db}
}

func (repo *metricsRepository) find(userID int, date string) *operator.DailyMetrics {
	for _, m := range repo.db.metrics {
		if m.UserID == userID && m.Date == date {
			return m
		}
	}
	return nil
}

func (repo *metricsRepository) GetMetrics(_ context.Context, userID int, date string, _ ...core.DBExecutor) (operator.DailyMetrics, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m := repo.find(userID, date); m != nil {
		return *m, nil
	}
	return operator.DailyMetrics{}, operator.ErrNotFound
}

func (repo *metricsRepository) QueryMetrics(_ context.Context, filter operator.MetricsFilter, _ ...core.DBExecutor) ([]operator.DailyMetrics, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	metrics := make([]operator.DailyMetrics, 0)
	for _, m := range repo.db.metrics {
		if filter.UserID != 0 && m.UserID != filter.UserID {
			continue
		}
		// YYYY-MM-DD strings compare chronologically
		if (filter.From != "" && m.Date < filter.From) || (filter.To != "" && m.Date > filter.To) {
			continue
		}
		metrics = append(metrics, *m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Date < metrics[j].Date })
	return metrics, nil
}

func (repo *metricsRepository) RecordCall(_ context.Context, userID int, date string, call operator.Call, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	m := repo.find(userID, date)
	if m == nil {
		m = &operator.DailyMetrics{ID: repo.db.nextID("operator_metrics"), UserID: userID, Date: date}
		repo.db.metrics[m.ID] = m
	}
	*m = m.WithCall(call)
	return nil
}
