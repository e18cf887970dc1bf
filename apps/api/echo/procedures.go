package echoapi

import (
	"github.com/labstack/echo/v4"

	notificationsvc "github.com/trezcool/teleapo/services/notification"
)

var successResult = echo.Map{"success": true}

type idInput struct {
	ID int `json:"id" validate:"required"`
}

func (s *Server) registerProcedures() {
	s.registerSystemProcedures()
	s.registerLeadProcedures()
	s.registerAppointmentProcedures()
	s.registerCatalogProcedures()
	s.registerUserProcedures()
	s.registerProjectProcedures()
}

func (s *Server) registerSystemProcedures() {
	s.query("system.health", public, func(c *call) (interface{}, error) {
		var in struct {
			Timestamp *float64 `json:"timestamp" validate:"required,min=0"`
		}
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return echo.Map{"ok": true}, nil
	})

	s.mutation("system.notifyOwner", systemAdmin, func(c *call) (interface{}, error) {
		var in notificationsvc.Notification
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		delivered, err := s.Notifier.NotifyOwner(c.context(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": delivered}, nil
	})

	s.query("auth.me", public, func(c *call) (interface{}, error) {
		return c.user, nil
	})

	s.mutation("auth.logout", public, func(c *call) (interface{}, error) {
		s.clearSessionCookie(c.Context)
		return successResult, nil
	})
}
