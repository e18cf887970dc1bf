package user

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
	RoleViewer  = "viewer"
)

var (
	AllRoles = []string{RoleAdmin, RoleManager, RoleAgent, RoleViewer}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleManager: 20,
		RoleAgent:   10,
		RoleViewer:  1,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type User struct {
	ID                 int         `json:"id" db:"id"`
	OpenID             string      `json:"openId" db:"open_id"`
	Name               null.String `json:"name" db:"name"`
	Email              null.String `json:"email" db:"email"`
	LoginMethod        null.String `json:"loginMethod" db:"login_method"`
	Role               string      `json:"role" db:"role"`
	GoogleAccessToken  null.String `json:"-" db:"google_access_token"`
	GoogleRefreshToken null.String `json:"-" db:"google_refresh_token"`
	GoogleCalendarID   null.String `json:"googleCalendarId" db:"google_calendar_id"`
	CreatedAt          time.Time   `json:"createdAt" db:"created_at"`        // UTC
	UpdatedAt          time.Time   `json:"updatedAt" db:"updated_at"`        // UTC
	LastSignedIn       time.Time   `json:"lastSignedIn" db:"last_signed_in"` // UTC
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsManager reports whether u passes the manager gate (admins included).
func (u User) IsManager() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// IsAgent reports whether u may work leads, i.e. is anything but a viewer.
func (u User) IsAgent() bool {
	return u.Role != RoleViewer
}

func (u User) HasGoogleCalendar() bool {
	return u.GoogleAccessToken.Valid && u.GoogleAccessToken.String != ""
}

// Identity is the user information returned by the OAuth identity provider.
type Identity struct {
	OpenID      string
	Name        string
	Email       string
	LoginMethod string
}

// UpsertUser inserts a user or updates the one with the same OpenID.
// nil fields are left untouched on update; empty strings are stored as NULL.
type UpsertUser struct {
	OpenID       string
	Name         *string
	Email        *string
	LoginMethod  *string
	Role         *string
	LastSignedIn time.Time
}

// GoogleTokens are the Google OAuth credentials stored for calendar sync.
type GoogleTokens struct {
	AccessToken  null.String
	RefreshToken null.String
	CalendarID   null.String
}

type UpdateRole struct {
	UserID int    `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,userrole"`
}

type GetFilter struct {
	ID     int
	OpenID string
}

type QueryFilter struct {
	Roles        []string
	ExcludeRoles []string
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (len(qf.Roles) == 0 && len(qf.ExcludeRoles) == 0)
}

// Matches reports whether usr satisfies the filter.
func (qf *QueryFilter) Matches(usr User) bool {
	if qf.IsEmpty() {
		return true
	}
	if len(qf.Roles) > 0 && !contains(qf.Roles, usr.Role) {
		return false
	}
	return !contains(qf.ExcludeRoles, usr.Role)
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
