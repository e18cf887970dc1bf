package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) *projectRepository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) CreateProject(_ context.Context, p project.Project, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = repo.db.nextID("projects")
	repo.db.projects[p.ID] = &p
	return p, nil
}

func (repo *projectRepository) GetProject(_ context.Context, id int, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.projects[id]; ok {
		return *p, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryProjects(_ context.Context, _ ...core.DBExecutor) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	projects := make([]project.Project, 0, len(repo.db.projects))
	for _, p := range repo.db.projects {
		projects = append(projects, *p)
	}
	sortBy(projects, createdAtDesc,
		func(p project.Project, _ string) (time.Time, bool) { return p.CreatedAt, true },
		func(p project.Project) int { return p.ID })
	return projects, nil
}

func (repo *projectRepository) UpdateProject(_ context.Context, id int, patch project.Patch, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.projects[id]
	if !ok {
		return project.ErrNotFound
	}
	patch.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *projectRepository) DeleteProject(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.projects[id]; !ok {
		return project.ErrNotFound
	}
	for mid, m := range repo.db.projectMembers {
		if m.ProjectID == id {
			delete(repo.db.projectMembers, mid)
		}
	}
	for lid, l := range repo.db.projectLists {
		if l.ProjectID == id {
			delete(repo.db.projectLists, lid)
		}
	}
	for cid, c := range repo.db.projectCampaigns {
		if c.ProjectID == id {
			delete(repo.db.projectCampaigns, cid)
		}
	}
	delete(repo.db.projects, id)
	return nil
}

func (repo *projectRepository) findMember(projectID, userID int) *project.Member {
	for _, m := range repo.db.projectMembers {
		if m.ProjectID == projectID && m.UserID == userID {
			return m
		}
	}
	return nil
}

func (repo *projectRepository) AddMember(_ context.Context, m project.Member, _ ...core.DBExecutor) (project.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.findMember(m.ProjectID, m.UserID) != nil {
		return project.Member{}, project.ErrMemberExists
	}
	m.ID = repo.db.nextID("project_members")
	repo.db.projectMembers[m.ID] = &m
	return m, nil
}

func (repo *projectRepository) QueryMembers(_ context.Context, filter project.MemberFilter, _ ...core.DBExecutor) ([]project.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]project.Member, 0)
	for _, m := range repo.db.projectMembers {
		if filter.Matches(*m) {
			members = append(members, *m)
		}
	}
	sortBy(members, []core.DBOrdering{{Field: "added_at", Ascending: true}},
		func(m project.Member, _ string) (time.Time, bool) { return m.AddedAt, true },
		func(m project.Member) int { return m.ID })
	return members, nil
}

func (repo *projectRepository) UpdateMemberRole(_ context.Context, projectID, userID int, role string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	m := repo.findMember(projectID, userID)
	if m == nil {
		return project.ErrMemberNotFound
	}
	m.Role = role
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *projectRepository) RemoveMember(_ context.Context, projectID, userID int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	m := repo.findMember(projectID, userID)
	if m == nil {
		return project.ErrMemberNotFound
	}
	delete(repo.db.projectMembers, m.ID)
	return nil
}

func (repo *projectRepository) CreateList(_ context.Context, l project.List, _ ...core.DBExecutor) (project.List, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = repo.db.nextID("project_lists")
	repo.db.projectLists[l.ID] = &l
	return l, nil
}

func (repo *projectRepository) QueryLists(_ context.Context, projectID int, _ ...core.DBExecutor) ([]project.List, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lists := make([]project.List, 0)
	for _, l := range repo.db.projectLists {
		if l.ProjectID == projectID {
			lists = append(lists, *l)
		}
	}
	sortBy(lists, createdAtDesc,
		func(l project.List, _ string) (time.Time, bool) { return l.CreatedAt, true },
		func(l project.List) int { return l.ID })
	return lists, nil
}

func (repo *projectRepository) CreateCampaign(_ context.Context, c project.Campaign, _ ...core.DBExecutor) (project.Campaign, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextID("project_campaigns")
	repo.db.projectCampaigns[c.ID] = &c
	return c, nil
}

func (repo *projectRepository) QueryCampaigns(_ context.Context, projectID int, _ ...core.DBExecutor) ([]project.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	campaigns := make([]project.Campaign, 0)
	for _, c := range repo.db.projectCampaigns {
		if c.ProjectID == projectID {
			campaigns = append(campaigns, *c)
		}
	}
	sortBy(campaigns, createdAtDesc,
		func(c project.Campaign, _ string) (time.Time, bool) { return c.CreatedAt, true },
		func(c project.Campaign) int { return c.ID })
	return campaigns, nil
}
