package appointment

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Statuses
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

var AllStatuses = []string{StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted}

type Appointment struct {
	ID               int         `json:"id" db:"id"`
	LeadID           int         `json:"leadId" db:"lead_id"`
	OwnerUserID      int         `json:"ownerUserId" db:"owner_user_id"`
	Status           string      `json:"status" db:"status"`
	StartAt          time.Time   `json:"startAt" db:"start_at"`
	EndAt            time.Time   `json:"endAt" db:"end_at"`
	Title            null.String `json:"title" db:"title"`
	Description      null.String `json:"description" db:"description"`
	GoogleCalendarID null.String `json:"googleCalendarId" db:"google_calendar_id"`
	GoogleEventID    null.String `json:"googleEventId" db:"google_event_id"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" db:"updated_at"`
}

type NewAppointment struct {
	LeadID      int       `json:"leadId" validate:"required"`
	OwnerUserID int       `json:"ownerUserId" validate:"required"`
	StartAt     time.Time `json:"startAt" validate:"required"`
	EndAt       time.Time `json:"endAt" validate:"required,gtfield=StartAt"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
}

type UpdateAppointment struct {
	ID          int        `json:"id" validate:"required"`
	Status      *string    `json:"status" validate:"omitempty,apptstatus"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
}

// Patch lists the columns to change. nil fields are left untouched.
type Patch struct {
	Status           *string
	StartAt          *time.Time
	EndAt            *time.Time
	Title            *string
	Description      *string
	GoogleCalendarID *string
	GoogleEventID    *string
}

func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.StartAt == nil && p.EndAt == nil && p.Title == nil && p.Description == nil &&
		p.GoogleCalendarID == nil && p.GoogleEventID == nil
}

// Apply copies the patched fields onto a.
func (p Patch) Apply(a *Appointment) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.StartAt != nil {
		a.StartAt = p.StartAt.UTC()
	}
	if p.EndAt != nil {
		a.EndAt = p.EndAt.UTC()
	}
	if p.Title != nil {
		a.Title = null.StringFrom(*p.Title)
	}
	if p.Description != nil {
		a.Description = null.StringFrom(*p.Description)
	}
	if p.GoogleCalendarID != nil {
		a.GoogleCalendarID = null.StringFrom(*p.GoogleCalendarID)
	}
	if p.GoogleEventID != nil {
		a.GoogleEventID = null.StringFrom(*p.GoogleEventID)
	}
}

// Event is what gets synced to the owner's calendar.
type Event struct {
	Summary     string
	Description string
	StartAt     time.Time
	EndAt       time.Time
}
