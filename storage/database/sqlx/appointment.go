package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/appointment"
)

const appointmentInsert = `INSERT INTO appointments (lead_id, owner_user_id, status, start_at, end_at, title, description,
	google_calendar_id, google_event_id, created_at, updated_at)
VALUES (:lead_id, :owner_user_id, :status, :start_at, :end_at, :title, :description,
	:google_calendar_id, :google_event_id, :created_at, :updated_at) RETURNING *`

type appointmentRepository struct {
	repository
}

var _ appointment.Repository = (*appointmentRepository)(nil) // interface compliance check

func NewAppointmentRepository(db core.DBExecutor) *appointmentRepository {
	return &appointmentRepository{repository{db: db}}
}

func (repo appointmentRepository) CreateAppointment(ctx context.Context, a appointment.Appointment, exec ...core.DBExecutor) (appointment.Appointment, error) {
	var created appointment.Appointment
	if err := namedGet(ctx, repo.getExec(exec), &created, appointmentInsert, a); err != nil {
		return appointment.Appointment{}, errors.Wrap(err, "inserting appointment")
	}
	return created, nil
}

func (repo appointmentRepository) GetAppointment(ctx context.Context, id int, exec ...core.DBExecutor) (appointment.Appointment, error) {
	exe := repo.getExec(exec)
	var a appointment.Appointment
	if err := sqlx.GetContext(ctx, exe, &a, exe.Rebind("SELECT * FROM appointments WHERE id = ?"), id); err != nil {
		return appointment.Appointment{}, trapNoRowsErr(err, appointment.ErrNotFound, "finding appointment")
	}
	return a, nil
}

func (repo appointmentRepository) QueryAppointments(ctx context.Context, ownerUserID int, exec ...core.DBExecutor) ([]appointment.Appointment, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT * FROM appointments WHERE owner_user_id = ? ORDER BY start_at DESC")
	appts := make([]appointment.Appointment, 0)
	if err := sqlx.SelectContext(ctx, exe, &appts, q, ownerUserID); err != nil {
		return nil, errors.Wrap(err, "querying appointments")
	}
	return appts, nil
}

func (repo appointmentRepository) UpdateAppointment(ctx context.Context, id int, patch appointment.Patch, exec ...core.DBExecutor) error {
	var sets clauses
	if patch.Status != nil {
		sets.add("status = ?", *patch.Status)
	}
	if patch.StartAt != nil {
		sets.add("start_at = ?", patch.StartAt.UTC())
	}
	if patch.EndAt != nil {
		sets.add("end_at = ?", patch.EndAt.UTC())
	}
	if patch.Title != nil {
		sets.add("title = ?", *patch.Title)
	}
	if patch.Description != nil {
		sets.add("description = ?", *patch.Description)
	}
	if patch.GoogleCalendarID != nil {
		sets.add("google_calendar_id = ?", *patch.GoogleCalendarID)
	}
	if patch.GoogleEventID != nil {
		sets.add("google_event_id = ?", *patch.GoogleEventID)
	}
	sets.add("updated_at = ?", time.Now().UTC())

	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("UPDATE appointments"+sets.set()+" WHERE id = ?"), append(sets.args, id)...)
	if err != nil {
		return errors.Wrap(err, "updating appointment")
	}
	return checkAffected(res, appointment.ErrNotFound)
}

func (repo appointmentRepository) DeleteAppointment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM appointments WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting appointment")
	}
	return checkAffected(res, appointment.ErrNotFound)
}
