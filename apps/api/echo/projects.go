package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/teleapo/core/project"
)

func (s *Server) registerProjectProcedures() {
	s.mutation("projects.create", adminOnly, func(c *call) (interface{}, error) {
		var in project.NewProject
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		pj, err := s.ProjectSvc.Create(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "projectId": pj.ID}, nil
	})

	s.query("projects.getAll", adminOnly, func(c *call) (interface{}, error) {
		return s.ProjectSvc.QueryAll(c.context())
	})

	s.query("projects.getMyProjects", protected, func(c *call) (interface{}, error) {
		return s.ProjectSvc.QueryMemberships(c.context(), c.actor().ID)
	})

	s.query("projects.getById", protected, func(c *call) (interface{}, error) {
		var in project.Ref
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.ProjectSvc.GetByID(c.context(), c.actor(), in.ProjectID)
	})

	s.mutation("projects.update", projectManager, func(c *call) (interface{}, error) {
		var in project.UpdateProject
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.ProjectSvc.Update(c.context(), c.actor(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.mutation("projects.delete", adminOnly, func(c *call) (interface{}, error) {
		var in project.Ref
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.ProjectSvc.Delete(c.context(), in.ProjectID); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	// members

	s.mutation("projectMembers.add", projectManager, func(c *call) (interface{}, error) {
		var in project.MemberRole
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if _, err := s.ProjectSvc.AddMember(c.context(), c.actor(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.query("projectMembers.getMembers", protected, func(c *call) (interface{}, error) {
		var in project.Ref
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.ProjectSvc.Members(c.context(), c.actor(), in.ProjectID)
	})

	s.mutation("projectMembers.updateRole", projectManager, func(c *call) (interface{}, error) {
		var in project.MemberRole
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.ProjectSvc.UpdateMemberRole(c.context(), c.actor(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.mutation("projectMembers.remove", projectManager, func(c *call) (interface{}, error) {
		var in project.MemberRef
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.ProjectSvc.RemoveMember(c.context(), c.actor(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	// lists & campaigns

	s.mutation("projectLists.create", protected, func(c *call) (interface{}, error) {
		var in project.NewList
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		l, err := s.ProjectSvc.CreateList(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "listId": l.ID}, nil
	})

	s.query("projectLists.getByProject", protected, func(c *call) (interface{}, error) {
		var in project.Ref
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.ProjectSvc.Lists(c.context(), c.actor(), in.ProjectID)
	})

	s.mutation("projectCampaigns.create", protected, func(c *call) (interface{}, error) {
		var in project.NewCampaign
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		cp, err := s.ProjectSvc.CreateCampaign(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "campaignId": cp.ID}, nil
	})

	s.query("projectCampaigns.getByProject", protected, func(c *call) (interface{}, error) {
		var in project.Ref
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.ProjectSvc.Campaigns(c.context(), c.actor(), in.ProjectID)
	})
}
