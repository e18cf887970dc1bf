package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/project"
)

const (
	projectInsert = `INSERT INTO projects (name, description, created_by, status, created_at, updated_at)
VALUES (:name, :description, :created_by, :status, :created_at, :updated_at) RETURNING *`

	memberInsert = `INSERT INTO project_members (project_id, user_id, role, added_by, added_at, updated_at)
VALUES (:project_id, :user_id, :role, :added_by, :added_at, :updated_at) RETURNING *`

	projectListInsert = `INSERT INTO project_lists (project_id, name, description, total_count, created_by, created_at, updated_at)
VALUES (:project_id, :name, :description, :total_count, :created_by, :created_at, :updated_at) RETURNING *`

	projectCampaignInsert = `INSERT INTO project_campaigns (project_id, name, description, created_by, created_at, updated_at)
VALUES (:project_id, :name, :description, :created_by, :created_at, :updated_at) RETURNING *`

	uniqueViolation = "23505"
)

type projectRepository struct {
	repository
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db core.DBExecutor) *projectRepository {
	return &projectRepository{repository{db: db}}
}

func (repo projectRepository) CreateProject(ctx context.Context, p project.Project, exec ...core.DBExecutor) (project.Project, error) {
	var created project.Project
	if err := namedGet(ctx, repo.getExec(exec), &created, projectInsert, p); err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	return created, nil
}

func (repo projectRepository) GetProject(ctx context.Context, id int, exec ...core.DBExecutor) (project.Project, error) {
	exe := repo.getExec(exec)
	var p project.Project
	if err := sqlx.GetContext(ctx, exe, &p, exe.Rebind("SELECT * FROM projects WHERE id = ?"), id); err != nil {
		return project.Project{}, trapNoRowsErr(err, project.ErrNotFound, "finding project")
	}
	return p, nil
}

func (repo projectRepository) QueryProjects(ctx context.Context, exec ...core.DBExecutor) ([]project.Project, error) {
	projects := make([]project.Project, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &projects, "SELECT * FROM projects ORDER BY created_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	return projects, nil
}

func (repo projectRepository) UpdateProject(ctx context.Context, id int, patch project.Patch, exec ...core.DBExecutor) error {
	var sets clauses
	if patch.Name != nil {
		sets.add("name = ?", *patch.Name)
	}
	if patch.Description != nil {
		sets.add("description = ?", *patch.Description)
	}
	if patch.Status != nil {
		sets.add("status = ?", *patch.Status)
	}
	sets.add("updated_at = ?", time.Now().UTC())

	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("UPDATE projects"+sets.set()+" WHERE id = ?"), append(sets.args, id)...)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return checkAffected(res, project.ErrNotFound)
}

// DeleteProject relies on ON DELETE CASCADE to drop the members, lists and campaigns.
func (repo projectRepository) DeleteProject(ctx context.Context, id int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM projects WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return checkAffected(res, project.ErrNotFound)
}

func (repo projectRepository) AddMember(ctx context.Context, m project.Member, exec ...core.DBExecutor) (project.Member, error) {
	var created project.Member
	if err := namedGet(ctx, repo.getExec(exec), &created, memberInsert, m); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return project.Member{}, project.ErrMemberExists
		}
		return project.Member{}, errors.Wrap(err, "inserting project member")
	}
	return created, nil
}

func (repo projectRepository) QueryMembers(ctx context.Context, filter project.MemberFilter, exec ...core.DBExecutor) ([]project.Member, error) {
	var conds clauses
	if filter.ProjectID != 0 {
		conds.add("project_id = ?", filter.ProjectID)
	}
	if filter.UserID != 0 {
		conds.add("user_id = ?", filter.UserID)
	}

	exe := repo.getExec(exec)
	members := make([]project.Member, 0)
	q := exe.Rebind("SELECT * FROM project_members" + conds.where() + " ORDER BY added_at ASC, id ASC")
	if err := sqlx.SelectContext(ctx, exe, &members, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying project members")
	}
	return members, nil
}

func (repo projectRepository) UpdateMemberRole(ctx context.Context, projectID, userID int, role string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := exe.Rebind("UPDATE project_members SET role = ?, updated_at = ? WHERE project_id = ? AND user_id = ?")
	res, err := exe.ExecContext(ctx, q, role, time.Now().UTC(), projectID, userID)
	if err != nil {
		return errors.Wrap(err, "updating project member role")
	}
	return checkAffected(res, project.ErrMemberNotFound)
}

func (repo projectRepository) RemoveMember(ctx context.Context, projectID, userID int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := exe.Rebind("DELETE FROM project_members WHERE project_id = ? AND user_id = ?")
	res, err := exe.ExecContext(ctx, q, projectID, userID)
	if err != nil {
		return errors.Wrap(err, "removing project member")
	}
	return checkAffected(res, project.ErrMemberNotFound)
}

func (repo projectRepository) CreateList(ctx context.Context, l project.List, exec ...core.DBExecutor) (project.List, error) {
	var created project.List
	if err := namedGet(ctx, repo.getExec(exec), &created, projectListInsert, l); err != nil {
		return project.List{}, errors.Wrap(err, "inserting project list")
	}
	return created, nil
}

func (repo projectRepository) QueryLists(ctx context.Context, projectID int, exec ...core.DBExecutor) ([]project.List, error) {
	exe := repo.getExec(exec)
	lists := make([]project.List, 0)
	q := exe.Rebind("SELECT * FROM project_lists WHERE project_id = ? ORDER BY created_at DESC")
	if err := sqlx.SelectContext(ctx, exe, &lists, q, projectID); err != nil {
		return nil, errors.Wrap(err, "querying project lists")
	}
	return lists, nil
}

func (repo projectRepository) CreateCampaign(ctx context.Context, c project.Campaign, exec ...core.DBExecutor) (project.Campaign, error) {
	var created project.Campaign
	if err := namedGet(ctx, repo.getExec(exec), &created, projectCampaignInsert, c); err != nil {
		return project.Campaign{}, errors.Wrap(err, "inserting project campaign")
	}
	return created, nil
}

func (repo projectRepository) QueryCampaigns(ctx context.Context, projectID int, exec ...core.DBExecutor) ([]project.Campaign, error) {
	exe := repo.getExec(exec)
	campaigns := make([]project.Campaign, 0)
	q := exe.Rebind("SELECT * FROM project_campaigns WHERE project_id = ? ORDER BY created_at DESC")
	if err := sqlx.SelectContext(ctx, exe, &campaigns, q, projectID); err != nil {
		return nil, errors.Wrap(err, "querying project campaigns")
	}
	return campaigns, nil
}
