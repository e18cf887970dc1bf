package project

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Project statuses
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusInactive = "inactive"
)

// Member roles
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleAgent   = "agent"
	RoleViewer  = "viewer"
)

var (
	AllStatuses    = []string{StatusActive, StatusArchived, StatusInactive}
	AllMemberRoles = []string{RoleOwner, RoleManager, RoleAgent, RoleViewer}
)

type Project struct {
	ID          int         `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	CreatedBy   int         `json:"createdBy" db:"created_by"`
	Status      string      `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

type Member struct {
	ID        int       `json:"id" db:"id"`
	ProjectID int       `json:"projectId" db:"project_id"`
	UserID    int       `json:"userId" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	AddedBy   int       `json:"addedBy" db:"added_by"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type List struct {
	ID          int         `json:"id" db:"id"`
	ProjectID   int         `json:"projectId" db:"project_id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	TotalCount  int         `json:"totalCount" db:"total_count"`
	CreatedBy   int         `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

type Campaign struct {
	ID          int         `json:"id" db:"id"`
	ProjectID   int         `json:"projectId" db:"project_id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	CreatedBy   int         `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

type NewProject struct {
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description"`
}

type UpdateProject struct {
	ProjectID   int     `json:"projectId" validate:"required"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,projectstatus"`
}

// Patch lists the project columns to change. nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	Status      *string
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil
}

// Apply copies the patched fields onto pj.
func (p Patch) Apply(pj *Project) {
	if p.Name != nil {
		pj.Name = *p.Name
	}
	if p.Description != nil {
		pj.Description = null.StringFrom(*p.Description)
	}
	if p.Status != nil {
		pj.Status = *p.Status
	}
}

// Ref identifies a project in requests.
type Ref struct {
	ProjectID int `json:"projectId" validate:"required"`
}

type MemberRole struct {
	ProjectID int    `json:"projectId" validate:"required"`
	UserID    int    `json:"userId" validate:"required"`
	Role      string `json:"role" validate:"required,memberrole"`
}

type MemberRef struct {
	ProjectID int `json:"projectId" validate:"required"`
	UserID    int `json:"userId" validate:"required"`
}

type NewList struct {
	ProjectID   int     `json:"projectId" validate:"required"`
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description"`
}

type NewCampaign struct {
	ProjectID   int     `json:"projectId" validate:"required"`
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description"`
}

type MemberFilter struct {
	ProjectID int
	UserID    int
}

// Matches reports whether m satisfies the filter. Zero values match everything.
func (f MemberFilter) Matches(m Member) bool {
	return (f.ProjectID == 0 || m.ProjectID == f.ProjectID) && (f.UserID == 0 || m.UserID == f.UserID)
}
