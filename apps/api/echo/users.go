package echoapi

import (
	"github.com/trezcool/teleapo/core/activity"
	"github.com/trezcool/teleapo/core/operator"
	"github.com/trezcool/teleapo/core/user"
)

func (s *Server) registerUserProcedures() {
	s.query("users.getAll", adminOnly, func(c *call) (interface{}, error) {
		return s.UserSvc.QueryAll(c.context())
	})

	updateRole := func(c *call) (interface{}, error) {
		var in user.UpdateRole
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.UserSvc.UpdateRole(c.context(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	}
	s.mutation("users.updateRole", adminOnly, updateRole)
	s.mutation("operators.updateRole", adminOnly, updateRole)

	s.query("operators.getAll", managerOnly, func(c *call) (interface{}, error) {
		return s.OperatorSvc.QueryAll(c.context())
	})

	s.query("operators.getPerformance", managerOnly, func(c *call) (interface{}, error) {
		var in operator.PerformanceQuery
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.OperatorSvc.GetPerformance(c.context(), in)
	})

	s.query("operators.getActivityLog", managerOnly, func(c *call) (interface{}, error) {
		var in activity.Filter
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.ActivitySvc.Query(c.context(), in)
	})
}
