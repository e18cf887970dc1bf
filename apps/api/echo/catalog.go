package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/teleapo/core/campaign"
	"github.com/trezcool/teleapo/core/dashboard"
	"github.com/trezcool/teleapo/core/export"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/list"
)

type exportFileInput struct {
	lead.Filter
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

func (s *Server) registerCatalogProcedures() {
	s.mutation("lists.create", managerOnly, func(c *call) (interface{}, error) {
		var in list.NewList
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		l, err := s.ListSvc.Create(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "listId": l.ID}, nil
	})

	s.query("lists.getAll", protected, func(c *call) (interface{}, error) {
		return s.ListSvc.QueryAll(c.context())
	})

	s.query("lists.getById", protected, func(c *call) (interface{}, error) {
		var in idInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.ListSvc.GetByID(c.context(), in.ID)
	})

	s.mutation("campaigns.create", managerOnly, func(c *call) (interface{}, error) {
		var in campaign.NewCampaign
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		cp, err := s.CampaignSvc.Create(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "campaignId": cp.ID}, nil
	})

	s.query("campaigns.getAll", protected, func(c *call) (interface{}, error) {
		return s.CampaignSvc.QueryAll(c.context())
	})

	s.query("campaigns.getById", protected, func(c *call) (interface{}, error) {
		var in idInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.CampaignSvc.GetByID(c.context(), in.ID)
	})

	// CSV / XLSX

	s.query("csv.exportLeads", protected, func(c *call) (interface{}, error) {
		var filter lead.Filter
		if err := c.bind(&filter); err != nil {
			return nil, err
		}
		return s.LeadSvc.Query(c.context(), filter)
	})

	s.query("csv.exportLeadsFile", protected, func(c *call) (interface{}, error) {
		var in exportFileInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if in.Format == "" {
			in.Format = export.FormatCSV
		}
		leads, err := s.LeadSvc.Query(c.context(), in.Filter)
		if err != nil {
			return nil, err
		}
		return export.Leads(in.Format, leads)
	})

	s.query("csv.getSampleCSV", public, func(c *call) (interface{}, error) {
		var in struct {
			Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
		}
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if in.Format == "" {
			in.Format = export.FormatCSV
		}
		return export.Sample(in.Format)
	})

	s.query("dashboard.getKPI", protected, func(c *call) (interface{}, error) {
		var in dashboard.KPIQuery
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.DashboardSvc.GetKPI(c.context(), in)
	})
}
