package project_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/project"
	"github.com/trezcool/teleapo/core/user"
	inmemdb "github.com/trezcool/teleapo/storage/database/inmem"
	testutil "github.com/trezcool/teleapo/tests"
)

type fixture struct {
	svc                   *project.Service
	admin, owner, manager user.User
	agent, outsider       user.User
	pj                    project.Project
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	f := fixture{
		svc:      project.NewService(inmemdb.NewProjectRepository(db), inmemdb.NewTransactor()),
		admin:    testutil.CreateUser(t, users, "admin", user.RoleAdmin),
		owner:    testutil.CreateUser(t, users, "owner", user.RoleManager),
		manager:  testutil.CreateUser(t, users, "manager", user.RoleManager),
		agent:    testutil.CreateUser(t, users, "agent", user.RoleAgent),
		outsider: testutil.CreateUser(t, users, "outsider", user.RoleAgent),
	}

	ctx := context.Background()
	var err error
	f.pj, err = f.svc.Create(ctx, f.owner, project.NewProject{Name: "  Spring campaign "})
	require.NoError(t, err)
	_, err = f.svc.AddMember(ctx, f.owner, project.MemberRole{ProjectID: f.pj.ID, UserID: f.manager.ID, Role: project.RoleManager})
	require.NoError(t, err)
	_, err = f.svc.AddMember(ctx, f.owner, project.MemberRole{ProjectID: f.pj.ID, UserID: f.agent.ID, Role: project.RoleAgent})
	require.NoError(t, err)
	return f
}

func permissionMessage(t *testing.T, err error) string {
	t.Helper()
	pErr, ok := err.(*core.PermissionError)
	require.True(t, ok, "want a permission error, got %v", err)
	return pErr.Error()
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	assert.Equal(t, "Spring campaign", f.pj.Name)
	assert.Equal(t, project.StatusActive, f.pj.Status)
	assert.Equal(t, f.owner.ID, f.pj.CreatedBy)

	members, err := f.svc.Members(ctx, f.owner, f.pj.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, f.owner.ID, members[0].UserID)
	assert.Equal(t, project.RoleOwner, members[0].Role)

	memberships, err := f.svc.QueryMemberships(ctx, f.agent.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, f.pj.ID, memberships[0].ProjectID)
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	for _, actor := range []user.User{f.owner, f.agent, f.admin} {
		pj, err := f.svc.GetByID(ctx, actor, f.pj.ID)
		require.NoError(t, err)
		assert.Equal(t, f.pj.ID, pj.ID)
	}

	_, err := f.svc.GetByID(ctx, f.outsider, f.pj.ID)
	assert.Equal(t, "Access denied", permissionMessage(t, err))

	_, err = f.svc.GetByID(ctx, f.admin, 404)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	archived := project.StatusArchived
	name := " Renamed "

	err := f.svc.Update(ctx, f.manager, project.UpdateProject{ProjectID: f.pj.ID, Status: &archived})
	assert.Equal(t, "Access denied", permissionMessage(t, err))

	require.NoError(t, f.svc.Update(ctx, f.owner, project.UpdateProject{ProjectID: f.pj.ID, Name: &name}))
	require.NoError(t, f.svc.Update(ctx, f.admin, project.UpdateProject{ProjectID: f.pj.ID, Status: &archived}))

	pj, err := f.svc.GetByID(ctx, f.owner, f.pj.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", pj.Name)
	assert.Equal(t, project.StatusArchived, pj.Status)
}

func TestService_Members(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	tests := []struct {
		name    string
		actor   user.User
		call    func(actor user.User) error
		wantMsg string
	}{
		{
			name:  "manager cannot add",
			actor: f.manager,
			call: func(actor user.User) error {
				_, err := f.svc.AddMember(ctx, actor, project.MemberRole{ProjectID: f.pj.ID, UserID: f.outsider.ID, Role: project.RoleViewer})
				return err
			},
			wantMsg: "Only project owner can add members",
		},
		{
			name:  "agent cannot update",
			actor: f.agent,
			call: func(actor user.User) error {
				return f.svc.UpdateMemberRole(ctx, actor, project.MemberRole{ProjectID: f.pj.ID, UserID: f.agent.ID, Role: project.RoleOwner})
			},
			wantMsg: "Only project owner can update members",
		},
		{
			name:  "manager cannot remove",
			actor: f.manager,
			call: func(actor user.User) error {
				return f.svc.RemoveMember(ctx, actor, project.MemberRef{ProjectID: f.pj.ID, UserID: f.agent.ID})
			},
			wantMsg: "Only project owner can remove members",
		},
		{
			name:  "outsider cannot remove",
			actor: f.outsider,
			call: func(actor user.User) error {
				return f.svc.RemoveMember(ctx, actor, project.MemberRef{ProjectID: f.pj.ID, UserID: f.agent.ID})
			},
			wantMsg: "Access denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, permissionMessage(t, tt.call(tt.actor)))
		})
	}

	_, err := f.svc.AddMember(ctx, f.owner, project.MemberRole{ProjectID: f.pj.ID, UserID: f.agent.ID, Role: project.RoleViewer})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	assert.Equal(t, project.ErrMemberExists, vErr.Err)

	require.NoError(t, f.svc.UpdateMemberRole(ctx, f.admin, project.MemberRole{ProjectID: f.pj.ID, UserID: f.agent.ID, Role: project.RoleViewer}))
	require.NoError(t, f.svc.RemoveMember(ctx, f.owner, project.MemberRef{ProjectID: f.pj.ID, UserID: f.manager.ID}))

	members, err := f.svc.Members(ctx, f.owner, f.pj.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, project.RoleViewer, members[1].Role)

	_, err = f.svc.Members(ctx, f.manager, f.pj.ID)
	assert.Equal(t, "Access denied", permissionMessage(t, err))

	err = f.svc.RemoveMember(ctx, f.owner, project.MemberRef{ProjectID: f.pj.ID, UserID: f.manager.ID})
	assert.True(t, core.IsNotFound(err))
}

func TestService_ListsAndCampaigns(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	l, err := f.svc.CreateList(ctx, f.agent, project.NewList{ProjectID: f.pj.ID, Name: "Tokyo"})
	require.NoError(t, err)
	assert.Equal(t, f.agent.ID, l.CreatedBy)
	c, err := f.svc.CreateCampaign(ctx, f.manager, project.NewCampaign{ProjectID: f.pj.ID, Name: "Spring"})
	require.NoError(t, err)

	lists, err := f.svc.Lists(ctx, f.admin, f.pj.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, l.ID, lists[0].ID)

	campaigns, err := f.svc.Campaigns(ctx, f.owner, f.pj.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, c.ID, campaigns[0].ID)

	_, err = f.svc.CreateList(ctx, f.outsider, project.NewList{ProjectID: f.pj.ID, Name: "Osaka"})
	assert.Equal(t, "Access denied", permissionMessage(t, err))
	_, err = f.svc.Campaigns(ctx, f.outsider, f.pj.ID)
	assert.Equal(t, "Access denied", permissionMessage(t, err))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.CreateList(ctx, f.owner, project.NewList{ProjectID: f.pj.ID, Name: "Tokyo"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.pj.ID))

	_, err = f.svc.GetByID(ctx, f.admin, f.pj.ID)
	assert.True(t, core.IsNotFound(err))
	memberships, err := f.svc.QueryMemberships(ctx, f.agent.ID)
	require.NoError(t, err)
	assert.Empty(t, memberships)
	projects, err := f.svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	assert.True(t, core.IsNotFound(f.svc.Delete(ctx, f.pj.ID)))
}
