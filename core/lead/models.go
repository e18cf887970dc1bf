package lead

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
)

// Statuses
const (
	StatusUnreached         = "unreached"
	StatusConnected         = "connected"
	StatusNoAnswer          = "no_answer"
	StatusCallbackRequested = "callback_requested"
	StatusRetryWaiting      = "retry_waiting"
	StatusNG                = "ng"
	StatusConsidering       = "considering"
	StatusAppointed         = "appointed"
	StatusLost              = "lost"
)

var (
	AllStatuses = []string{
		StatusUnreached, StatusConnected, StatusNoAnswer, StatusCallbackRequested, StatusRetryWaiting,
		StatusNG, StatusConsidering, StatusAppointed, StatusLost,
	}

	// NextStatuses are the statuses getNext picks leads from.
	NextStatuses = []string{StatusUnreached, StatusCallbackRequested}
)

type Lead struct {
	ID              int         `json:"id" db:"id"`
	Name            string      `json:"name" db:"name"`
	Company         null.String `json:"company" db:"company"`
	Phone           string      `json:"phone" db:"phone"`
	Email           null.String `json:"email" db:"email"`
	Prefecture      null.String `json:"prefecture" db:"prefecture"`
	Industry        null.String `json:"industry" db:"industry"`
	Memo            null.String `json:"memo" db:"memo"`
	Status          string      `json:"status" db:"status"`
	CustomStatus    null.String `json:"customStatus" db:"custom_status"`
	OwnerID         null.Int    `json:"ownerId" db:"owner_id"`
	NextActionAt    null.Time   `json:"nextActionAt" db:"next_action_at"`
	ListID          null.Int    `json:"listId" db:"list_id"`
	CampaignID      null.Int    `json:"campaignId" db:"campaign_id"`
	LastContactedAt null.Time   `json:"lastContactedAt" db:"last_contacted_at"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// NewLead is one imported lead.
type NewLead struct {
	Name       string `json:"name" validate:"notblank"`
	Company    string `json:"company"`
	Phone      string `json:"phone" validate:"notblank"`
	Email      string `json:"email"`
	Prefecture string `json:"prefecture"`
	Industry   string `json:"industry"`
	Memo       string `json:"memo"`
}

func (nl *NewLead) Clean() {
	nl.Name = core.CleanString(nl.Name)
	nl.Company = core.CleanString(nl.Company)
	nl.Phone = core.CleanString(nl.Phone)
	nl.Email = core.CleanString(nl.Email)
	nl.Prefecture = core.CleanString(nl.Prefecture)
	nl.Industry = core.CleanString(nl.Industry)
	nl.Memo = core.CleanString(nl.Memo)
}

type ImportLeads struct {
	Leads      []NewLead `json:"leads" validate:"dive"`
	ListID     *int      `json:"listId"`
	CampaignID *int      `json:"campaignId"`
}

type ImportResult struct {
	SuccessCount   int `json:"successCount"`
	DuplicateCount int `json:"duplicateCount"`
}

type Filter struct {
	Status     string `json:"status" validate:"omitempty,leadstatus"`
	OwnerID    int    `json:"ownerId"`
	ListID     int    `json:"listId"`
	CampaignID int    `json:"campaignId"`
	// Statuses restricts the match to any of the given statuses.
	Statuses []string `json:"-"`
	Limit    int      `json:"-"`
}

// Matches reports whether l satisfies the filter. Zero values match everything.
func (f *Filter) Matches(l Lead) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, l.Status) {
		return false
	}
	if f.OwnerID != 0 && l.OwnerID.Int != f.OwnerID {
		return false
	}
	if f.ListID != 0 && l.ListID.Int != f.ListID {
		return false
	}
	if f.CampaignID != 0 && l.CampaignID.Int != f.CampaignID {
		return false
	}
	return true
}

// UpdateLead defines what may be changed on an existing lead.
type UpdateLead struct {
	ID           int        `json:"id" validate:"required"`
	Status       *string    `json:"status" validate:"omitempty,leadstatus"`
	Memo         *string    `json:"memo"`
	NextActionAt *time.Time `json:"nextActionAt"`
	OwnerID      *int       `json:"ownerId"`
}

// StatusUpdate records the outcome of contacting a lead.
type StatusUpdate struct {
	LeadID       int        `json:"leadId" validate:"required"`
	Status       string     `json:"status" validate:"omitempty,leadstatus"`
	CustomStatus *string    `json:"customStatus"`
	Memo         *string    `json:"memo"`
	NextActionAt *time.Time `json:"nextActionAt"`
}

type AssignLeads struct {
	LeadIDs []int `json:"leadIds" validate:"required,min=1"`
	AgentID int   `json:"agentId" validate:"required"`
}

// Patch lists the columns to change. nil fields are left untouched.
type Patch struct {
	Status          *string
	CustomStatus    *string
	Memo            *string
	NextActionAt    *time.Time
	OwnerID         *int
	LastContactedAt *time.Time
}

func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.CustomStatus == nil && p.Memo == nil && p.NextActionAt == nil &&
		p.OwnerID == nil && p.LastContactedAt == nil
}

// Apply copies the patched fields onto l.
func (p Patch) Apply(l *Lead) {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.CustomStatus != nil {
		l.CustomStatus = null.StringFrom(*p.CustomStatus)
	}
	if p.Memo != nil {
		l.Memo = null.StringFrom(*p.Memo)
	}
	if p.NextActionAt != nil {
		l.NextActionAt = null.TimeFrom(p.NextActionAt.UTC())
	}
	if p.OwnerID != nil {
		l.OwnerID = null.IntFrom(*p.OwnerID)
	}
	if p.LastContactedAt != nil {
		l.LastContactedAt = null.TimeFrom(p.LastContactedAt.UTC())
	}
}

type Assignment struct {
	ID         int       `json:"id" db:"id"`
	LeadID     int       `json:"leadId" db:"lead_id"`
	AgentID    int       `json:"agentId" db:"agent_id"`
	AssignedBy int       `json:"assignedBy" db:"assigned_by"`
	AssignedAt time.Time `json:"assignedAt" db:"assigned_at"`
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
