// Package inmemdb implements the repositories in memory, for tests and the "memory" database engine.
package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/appointment"
	"github.com/trezcool/teleapo/core/calllog"
	"github.com/trezcool/teleapo/core/campaign"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/list"
	"github.com/trezcool/teleapo/core/operator"
	"github.com/trezcool/teleapo/core/project"
	"github.com/trezcool/teleapo/core/user"
)

// DB holds every table behind a single lock.
type DB struct {
	sync.RWMutex
	seq map[string]int

	users            map[int]*user.User
	lists            map[int]*list.List
	campaigns        map[int]*campaign.Campaign
	leads            map[int]*lead.Lead
	assignments      map[int]*lead.Assignment
	callLogs         map[int]*calllog.CallLog
	appointments     map[int]*appointment.Appointment
	activityLogs     map[int]*activity.Log
	metrics          map[int]*operator.DailyMetrics
	projects         map[int]*project.Project
	projectMembers   map[int]*project.Member
	projectLists     map[int]*project.List
	projectCampaigns map[int]*project.Campaign
}

var createdAtDesc = []core.DBOrdering{{Field: "created_at"}}

func Open() *DB {
	return &DB{
		seq:              make(map[string]int),
		users:            make(map[int]*user.User),
		lists:            make(map[int]*list.List),
		campaigns:        make(map[int]*campaign.Campaign),
		leads:            make(map[int]*lead.Lead),
		assignments:      make(map[int]*lead.Assignment),
		callLogs:         make(map[int]*calllog.CallLog),
		appointments:     make(map[int]*appointment.Appointment),
		activityLogs:     make(map[int]*activity.Log),
		metrics:          make(map[int]*operator.DailyMetrics),
		projects:         make(map[int]*project.Project),
		projectMembers:   make(map[int]*project.Member),
		projectLists:     make(map[int]*project.List),
		projectCampaigns: make(map[int]*project.Campaign),
	}
}

// nextID returns the next primary key of the table. Callers must hold the write lock.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// sortBy orders items like the SQL ORDER BY clause would. Ties are broken by id, following the first ordering's direction.
// field returns the time value of a column and false when it is NULL.
func sortBy[T any](items []T, ordering []core.DBOrdering, field func(T, string) (time.Time, bool), id func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		for _, ord := range ordering {
			ta, okA := field(a, ord.Field)
			tb, okB := field(b, ord.Field)
			if okA != okB {
				// postgres puts NULLs last in ascending order and first in descending order
				if ord.NullsFirst || !ord.Ascending {
					return !okA
				}
				return okA
			}
			if !okA || ta.Equal(tb) {
				continue
			}
			if ord.Ascending {
				return ta.Before(tb)
			}
			return ta.After(tb)
		}
		if len(ordering) > 0 && !ordering[0].Ascending {
			return id(a) > id(b)
		}
		return id(a) < id(b)
	})
}

type transactor struct{}

var _ core.Transactor = transactor{} // interface compliance check

// NewTransactor returns a transactor that runs fn directly. Writes done before a failure are kept.
func NewTransactor() core.Transactor {
	return transactor{}
}

func (transactor) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}
