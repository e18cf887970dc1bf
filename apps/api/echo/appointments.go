package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/teleapo/core/appointment"
)

func (s *Server) registerAppointmentProcedures() {
	s.mutation("appointments.create", agentOnly, func(c *call) (interface{}, error) {
		var in appointment.NewAppointment
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		appt, err := s.AppointmentSvc.Create(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "appointmentId": appt.ID}, nil
	})

	s.query("appointments.getById", protected, func(c *call) (interface{}, error) {
		var in idInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.AppointmentSvc.GetByID(c.context(), in.ID)
	})

	s.query("appointments.getByOwner", protected, func(c *call) (interface{}, error) {
		var in struct {
			OwnerUserID int `json:"ownerUserId" validate:"required"`
		}
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.AppointmentSvc.QueryByOwner(c.context(), in.OwnerUserID)
	})

	s.mutation("appointments.update", agentOnly, func(c *call) (interface{}, error) {
		var in appointment.UpdateAppointment
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.AppointmentSvc.Update(c.context(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.mutation("appointments.delete", agentOnly, func(c *call) (interface{}, error) {
		var in idInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.AppointmentSvc.Delete(c.context(), in.ID); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	// Google Calendar

	s.query("googleCalendar.getAuthUrl", protected, func(c *call) (interface{}, error) {
		authURL, err := s.Calendar.AuthURL(c.actor().ID)
		if err != nil {
			return nil, err
		}
		return echo.Map{"authUrl": authURL}, nil
	})

	s.query("googleCalendar.isConnected", protected, func(c *call) (interface{}, error) {
		return echo.Map{"isConnected": c.actor().HasGoogleCalendar()}, nil
	})

	s.mutation("googleCalendar.disconnect", protected, func(c *call) (interface{}, error) {
		if err := s.UserSvc.ClearGoogleTokens(c.context(), c.actor().ID); err != nil {
			return nil, err
		}
		return successResult, nil
	})
}
