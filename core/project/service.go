package project

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("Project not found")
	ErrMemberNotFound = core.NewNotFoundError("Project member not found")
	ErrAccessDenied   = core.NewPermissionError("Access denied")
	ErrMemberExists   = errors.New("user is already a member of this project")

	statusTag      = "projectstatus"
	statusText     = "{0} must be one of active, archived or inactive"
	memberRoleTag  = "memberrole"
	memberRoleText = "{0} must be one of owner, manager, agent or viewer"
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project, exec ...core.DBExecutor) (Project, error)
		GetProject(ctx context.Context, id int, exec ...core.DBExecutor) (Project, error)
		// QueryProjects returns the latest projects first.
		QueryProjects(ctx context.Context, exec ...core.DBExecutor) ([]Project, error)
		UpdateProject(ctx context.Context, id int, patch Patch, exec ...core.DBExecutor) error
		// DeleteProject deletes the project along with its members, lists and campaigns.
		DeleteProject(ctx context.Context, id int, exec ...core.DBExecutor) error

		// AddMember returns ErrMemberExists when the user is already a member.
		AddMember(ctx context.Context, m Member, exec ...core.DBExecutor) (Member, error)
		// QueryMembers returns the members ordered by the date they were added.
		QueryMembers(ctx context.Context, filter MemberFilter, exec ...core.DBExecutor) ([]Member, error)
		UpdateMemberRole(ctx context.Context, projectID, userID int, role string, exec ...core.DBExecutor) error
		RemoveMember(ctx context.Context, projectID, userID int, exec ...core.DBExecutor) error

		CreateList(ctx context.Context, l List, exec ...core.DBExecutor) (List, error)
		QueryLists(ctx context.Context, projectID int, exec ...core.DBExecutor) ([]List, error)
		CreateCampaign(ctx context.Context, c Campaign, exec ...core.DBExecutor) (Campaign, error)
		QueryCampaigns(ctx context.Context, projectID int, exec ...core.DBExecutor) ([]Campaign, error)
	}

	Service struct {
		repo Repository
		tx   core.Transactor
	}
)

// InitValidators registers the project validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, core.OneOfValidation(AllStatuses...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
	_ = validate.RegisterValidation(memberRoleTag, core.OneOfValidation(AllMemberRoles...))
	core.RegisterCustomTranslation(validate, translator, memberRoleTag, memberRoleText)
}

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// Create creates an active project owned by the actor.
func (svc *Service) Create(ctx context.Context, actor user.User, np NewProject) (Project, error) {
	now := time.Now().UTC()
	var pj Project

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		pj, err = svc.repo.CreateProject(ctx, Project{
			Name:        core.CleanString(np.Name),
			Description: null.StringFromPtr(np.Description),
			CreatedBy:   actor.ID,
			Status:      StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, exec)
		if err != nil {
			return err
		}
		_, err = svc.repo.AddMember(ctx, Member{
			ProjectID: pj.ID,
			UserID:    actor.ID,
			Role:      RoleOwner,
			AddedBy:   actor.ID,
			AddedAt:   now,
			UpdatedAt: now,
		}, exec)
		return err
	})
	if err != nil {
		return Project{}, err
	}
	return pj, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Project, error) {
	return svc.repo.QueryProjects(ctx)
}

// QueryMemberships returns the user's project memberships.
func (svc *Service) QueryMemberships(ctx context.Context, userID int) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, MemberFilter{UserID: userID})
}

func (svc *Service) GetByID(ctx context.Context, actor user.User, id int) (Project, error) {
	pj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if _, err := svc.checkMember(ctx, actor, id); err != nil {
		return Project{}, err
	}
	return pj, nil
}

// Update changes a project. Only its creator or an admin may do so.
func (svc *Service) Update(ctx context.Context, actor user.User, up UpdateProject) error {
	pj, err := svc.repo.GetProject(ctx, up.ProjectID)
	if err != nil {
		return err
	}
	if pj.CreatedBy != actor.ID && !actor.IsAdmin() {
		return ErrAccessDenied
	}

	patch := Patch{Name: up.Name, Description: up.Description, Status: up.Status}
	if patch.Name != nil {
		name := core.CleanString(*patch.Name)
		patch.Name = &name
	}
	if patch.IsEmpty() {
		return nil
	}
	return svc.repo.UpdateProject(ctx, up.ProjectID, patch)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetProject(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteProject(ctx, id)
}

func (svc *Service) AddMember(ctx context.Context, actor user.User, mr MemberRole) (Member, error) {
	if _, err := svc.repo.GetProject(ctx, mr.ProjectID); err != nil {
		return Member{}, err
	}
	if err := svc.checkOwner(ctx, actor, mr.ProjectID, "add"); err != nil {
		return Member{}, err
	}

	now := time.Now().UTC()
	m, err := svc.repo.AddMember(ctx, Member{
		ProjectID: mr.ProjectID,
		UserID:    mr.UserID,
		Role:      mr.Role,
		AddedBy:   actor.ID,
		AddedAt:   now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrMemberExists {
			return Member{}, core.NewValidationError(ErrMemberExists, core.FieldError{Field: "userId", Error: ErrMemberExists.Error()})
		}
		return Member{}, err
	}
	return m, nil
}

func (svc *Service) Members(ctx context.Context, actor user.User, projectID int) ([]Member, error) {
	if _, err := svc.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return svc.checkMember(ctx, actor, projectID)
}

func (svc *Service) UpdateMemberRole(ctx context.Context, actor user.User, mr MemberRole) error {
	if err := svc.checkOwner(ctx, actor, mr.ProjectID, "update"); err != nil {
		return err
	}
	return svc.repo.UpdateMemberRole(ctx, mr.ProjectID, mr.UserID, mr.Role)
}

func (svc *Service) RemoveMember(ctx context.Context, actor user.User, ref MemberRef) error {
	if err := svc.checkOwner(ctx, actor, ref.ProjectID, "remove"); err != nil {
		return err
	}
	return svc.repo.RemoveMember(ctx, ref.ProjectID, ref.UserID)
}

func (svc *Service) CreateList(ctx context.Context, actor user.User, nl NewList) (List, error) {
	if _, err := svc.checkMember(ctx, actor, nl.ProjectID); err != nil {
		return List{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateList(ctx, List{
		ProjectID:   nl.ProjectID,
		Name:        core.CleanString(nl.Name),
		Description: null.StringFromPtr(nl.Description),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Lists(ctx context.Context, actor user.User, projectID int) ([]List, error) {
	if _, err := svc.checkMember(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return svc.repo.QueryLists(ctx, projectID)
}

func (svc *Service) CreateCampaign(ctx context.Context, actor user.User, nc NewCampaign) (Campaign, error) {
	if _, err := svc.checkMember(ctx, actor, nc.ProjectID); err != nil {
		return Campaign{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateCampaign(ctx, Campaign{
		ProjectID:   nc.ProjectID,
		Name:        core.CleanString(nc.Name),
		Description: null.StringFromPtr(nc.Description),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Campaigns(ctx context.Context, actor user.User, projectID int) ([]Campaign, error) {
	if _, err := svc.checkMember(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCampaigns(ctx, projectID)
}

// checkMember returns the project members when the actor is one of them or an admin.
func (svc *Service) checkMember(ctx context.Context, actor user.User, projectID int) ([]Member, error) {
	members, err := svc.repo.QueryMembers(ctx, MemberFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return members, nil
	}
	for _, m := range members {
		if m.UserID == actor.ID {
			return members, nil
		}
	}
	return nil, ErrAccessDenied
}

// checkOwner allows admins and owner members to manage the project members.
func (svc *Service) checkOwner(ctx context.Context, actor user.User, projectID int, action string) error {
	if actor.IsAdmin() {
		return nil
	}
	members, err := svc.repo.QueryMembers(ctx, MemberFilter{ProjectID: projectID, UserID: actor.ID})
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return ErrAccessDenied
	}
	if members[0].Role != RoleOwner {
		return core.NewPermissionError("Only project owner can " + action + " members")
	}
	return nil
}
