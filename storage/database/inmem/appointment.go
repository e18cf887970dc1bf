package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/appointment"
)

type appointmentRepository struct {
	db *DB
}

var _ appointment.Repository = (*appointmentRepository)(nil) // interface compliance check

func NewAppointmentRepository(db *DB) *appointmentRepository {
	return &appointmentRepository{db: db}
}

var latestStartFirst = []core.DBOrdering{{Field: "start_at"}}

func (repo *appointmentRepository) CreateAppointment(_ context.Context, a appointment.Appointment, _ ...core.DBExecutor) (appointment.Appointment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = repo.db.nextID("appointments")
	repo.db.appointments[a.ID] = &a
	return a, nil
}

func (repo *appointmentRepository) GetAppointment(_ context.Context, id int, _ ...core.DBExecutor) (appointment.Appointment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.appointments[id]; ok {
		return *a, nil
	}
	return appointment.Appointment{}, appointment.ErrNotFound
}

func (repo *appointmentRepository) QueryAppointments(_ context.Context, ownerUserID int, _ ...core.DBExecutor) ([]appointment.Appointment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	appts := make([]appointment.Appointment, 0)
	for _, a := range repo.db.appointments {
		if a.OwnerUserID == ownerUserID {
			appts = append(appts, *a)
		}
	}
	sortBy(appts, latestStartFirst,
		func(a appointment.Appointment, _ string) (time.Time, bool) { return a.StartAt, true },
		func(a appointment.Appointment) int { return a.ID })
	return appts, nil
}

func (repo *appointmentRepository) UpdateAppointment(_ context.Context, id int, patch appointment.Patch, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.appointments[id]
	if !ok {
		return appointment.ErrNotFound
	}
	patch.Apply(a)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *appointmentRepository) DeleteAppointment(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.appointments[id]; !ok {
		return appointment.ErrNotFound
	}
	delete(repo.db.appointments, id)
	return nil
}
