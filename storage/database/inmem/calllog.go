package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/calllog"
	"github.com/trezcool/teleapo/core/lead"
)

type callLogRepository struct {
	db *DB
}

var _ calllog.Repository = (*callLogRepository)(nil) // interface compliance check

func NewCallLogRepository(db *DB) *callLogRepository {
	return &callLogRepository{db: db}
}

func (repo *callLogRepository) CreateCallLog(_ context.Context, cl calllog.CallLog, _ ...core.DBExecutor) (calllog.CallLog, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cl.ID = repo.db.nextID("call_logs")
	repo.db.callLogs[cl.ID] = &cl
	return cl, nil
}

func (repo *callLogRepository) QueryCallLogs(_ context.Context, filter calllog.Filter, _ ...core.DBExecutor) ([]calllog.CallLog, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]calllog.CallLog, 0)
	for _, cl := range repo.db.callLogs {
		if (filter.LeadID == 0 || cl.LeadID == filter.LeadID) && (filter.AgentID == 0 || cl.AgentID == filter.AgentID) {
			logs = append(logs, *cl)
		}
	}
	sortBy(logs, createdAtDesc,
		func(cl calllog.CallLog, _ string) (time.Time, bool) { return cl.CreatedAt, true },
		func(cl calllog.CallLog) int { return cl.ID })
	return logs, nil
}

func (repo *callLogRepository) CountCallLogs(_ context.Context, filter calllog.CountFilter, _ ...core.DBExecutor) (calllog.Counts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var counts calllog.Counts
	for _, cl := range repo.db.callLogs {
		if !filter.From.IsZero() && cl.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && cl.CreatedAt.After(filter.To) {
			continue
		}
		if filter.AgentID != 0 && cl.AgentID != filter.AgentID {
			continue
		}
		counts.Total++
		switch cl.Result {
		case lead.StatusConnected:
			counts.Connected++
		case lead.StatusAppointed:
			counts.Appointed++
		}
	}
	return counts, nil
}
