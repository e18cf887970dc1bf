package appointment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("Appointment not found")
	errUnknownOwner   = errors.New("owner user does not exist")
	errUnknownLead    = errors.New("lead does not exist")
	errEndBeforeStart = errors.New("endAt must be after startAt")

	statusTag  = "apptstatus"
	statusText = "{0} must be one of scheduled, confirmed, cancelled or completed"

	scheduledTemplate = "appointment_scheduled"
)

type (
	Repository interface {
		CreateAppointment(ctx context.Context, a Appointment, exec ...core.DBExecutor) (Appointment, error)
		GetAppointment(ctx context.Context, id int, exec ...core.DBExecutor) (Appointment, error)
		// QueryAppointments returns the owner's appointments, latest start first.
		QueryAppointments(ctx context.Context, ownerUserID int, exec ...core.DBExecutor) ([]Appointment, error)
		UpdateAppointment(ctx context.Context, id int, patch Patch, exec ...core.DBExecutor) error
		DeleteAppointment(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	// CalendarSyncer creates events in the calendar the owner connected.
	CalendarSyncer interface {
		CreateEvent(ctx context.Context, owner user.User, ev Event) (calendarID, eventID string, err error)
	}

	Service struct {
		repo     Repository
		users    *user.Service
		leads    lead.Repository
		mailSvc  core.EmailService
		calendar CalendarSyncer
		activity *activity.Service
		logger   core.Logger
	}
)

// InitValidators registers the appointment validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, core.OneOfValidation(AllStatuses...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func NewService(
	repo Repository,
	users *user.Service,
	leads lead.Repository,
	mailSvc core.EmailService,
	calendar CalendarSyncer,
	act *activity.Service,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		leads:    leads,
		mailSvc:  mailSvc,
		calendar: calendar,
		activity: act,
		logger:   logger,
	}
}

// Create schedules an appointment, mails its owner and adds it to the owner's calendar when connected.
func (svc *Service) Create(ctx context.Context, actor user.User, na NewAppointment) (Appointment, error) {
	if !na.EndAt.After(na.StartAt) {
		return Appointment{}, core.NewValidationError(errEndBeforeStart, core.FieldError{Field: "endAt", Error: errEndBeforeStart.Error()})
	}
	owner, err := svc.users.GetByID(ctx, na.OwnerUserID)
	if err != nil {
		if core.IsNotFound(err) {
			return Appointment{}, core.NewValidationError(errUnknownOwner, core.FieldError{Field: "ownerUserId", Error: errUnknownOwner.Error()})
		}
		return Appointment{}, err
	}
	ld, err := svc.leads.GetLead(ctx, na.LeadID)
	if err != nil {
		if core.IsNotFound(err) {
			return Appointment{}, core.NewValidationError(errUnknownLead, core.FieldError{Field: "leadId", Error: errUnknownLead.Error()})
		}
		return Appointment{}, err
	}

	now := time.Now().UTC()
	appt, err := svc.repo.CreateAppointment(ctx, Appointment{
		LeadID:      na.LeadID,
		OwnerUserID: na.OwnerUserID,
		Status:      StatusScheduled,
		StartAt:     na.StartAt.UTC(),
		EndAt:       na.EndAt.UTC(),
		Title:       null.StringFromPtr(na.Title),
		Description: null.StringFromPtr(na.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Appointment{}, err
	}

	svc.syncCalendar(ctx, owner, ld, &appt)
	svc.notifyOwner(owner, ld, appt)

	svc.activity.Track(ctx, activity.NewLog{
		UserID: actor.ID,
		Action: activity.ActionAppointmentCreated,
		LeadID: appt.LeadID,
		Details: struct {
			AppointmentID int `json:"appointmentId"`
			OwnerUserID   int `json:"ownerUserId"`
		}{appt.ID, appt.OwnerUserID},
	})
	return appt, nil
}

func (svc *Service) syncCalendar(ctx context.Context, owner user.User, ld lead.Lead, appt *Appointment) {
	if svc.calendar == nil || !owner.HasGoogleCalendar() {
		return
	}
	calID, evID, err := svc.calendar.CreateEvent(ctx, owner, Event{
		Summary:     eventSummary(ld, *appt),
		Description: appt.Description.String,
		StartAt:     appt.StartAt,
		EndAt:       appt.EndAt,
	})
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("appointment.syncCalendar(%d): %v", appt.ID, err), err, owner)
		return
	}
	patch := Patch{GoogleCalendarID: &calID, GoogleEventID: &evID}
	if err := svc.repo.UpdateAppointment(ctx, appt.ID, patch); err != nil {
		svc.logger.Error(fmt.Sprintf("appointment.syncCalendar(%d): %v", appt.ID, err), err, owner)
		return
	}
	patch.Apply(appt)
}

func (svc *Service) notifyOwner(owner user.User, ld lead.Lead, appt Appointment) {
	if svc.mailSvc == nil || !owner.Email.Valid || owner.Email.String == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: owner.Name.String, Address: owner.Email.String}},
		Subject:      "New appointment: " + eventSummary(ld, appt),
		TemplateName: scheduledTemplate,
		TemplateData: map[string]interface{}{
			"OwnerName":   owner.Name.String,
			"LeadName":    ld.Name,
			"Company":     ld.Company.String,
			"Phone":       ld.Phone,
			"Title":       appt.Title.String,
			"Description": appt.Description.String,
			"StartAt":     appt.StartAt.Format(time.RFC1123),
			"EndAt":       appt.EndAt.Format(time.RFC1123),
		},
	})
}

func eventSummary(ld lead.Lead, appt Appointment) string {
	if appt.Title.Valid && appt.Title.String != "" {
		return appt.Title.String
	}
	if ld.Company.Valid && ld.Company.String != "" {
		return ld.Name + " (" + ld.Company.String + ")"
	}
	return ld.Name
}

// GetByID returns nil when the appointment does not exist.
func (svc *Service) GetByID(ctx context.Context, id int) (*Appointment, error) {
	a, err := svc.repo.GetAppointment(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (svc *Service) QueryByOwner(ctx context.Context, ownerUserID int) ([]Appointment, error) {
	return svc.repo.QueryAppointments(ctx, ownerUserID)
}

// Update applies a partial update. The resulting endAt must stay after startAt.
func (svc *Service) Update(ctx context.Context, ua UpdateAppointment) error {
	appt, err := svc.repo.GetAppointment(ctx, ua.ID)
	if err != nil {
		return err
	}
	patch := Patch{
		Status:      ua.Status,
		StartAt:     ua.StartAt,
		EndAt:       ua.EndAt,
		Title:       ua.Title,
		Description: ua.Description,
	}
	if patch.IsEmpty() {
		return nil
	}

	merged := appt
	patch.Apply(&merged)
	if !merged.EndAt.After(merged.StartAt) {
		return core.NewValidationError(errEndBeforeStart, core.FieldError{Field: "endAt", Error: errEndBeforeStart.Error()})
	}
	return svc.repo.UpdateAppointment(ctx, ua.ID, patch)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetAppointment(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteAppointment(ctx, id)
}
