package echoapi

import (
	"bytes"
	"encoding/base64"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/teleapo/core/calllog"
	"github.com/trezcool/teleapo/core/export"
	"github.com/trezcool/teleapo/core/lead"
)

type importFileInput struct {
	Format     string `json:"format" validate:"required,oneof=csv xlsx"`
	Content    string `json:"content" validate:"required"` // base64
	ListID     *int   `json:"listId"`
	CampaignID *int   `json:"campaignId"`
}

func (s *Server) registerLeadProcedures() {
	s.query("leads.getNext", agentOnly, func(c *call) (interface{}, error) {
		return s.LeadSvc.GetNext(c.context(), c.actor().ID)
	})

	s.query("leads.getById", protected, func(c *call) (interface{}, error) {
		var in idInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.LeadSvc.GetByID(c.context(), in.ID)
	})

	s.query("leads.list", protected, func(c *call) (interface{}, error) {
		var filter lead.Filter
		if err := c.bind(&filter); err != nil {
			return nil, err
		}
		return s.LeadSvc.Query(c.context(), filter)
	})

	s.query("leads.myLeads", agentOnly, func(c *call) (interface{}, error) {
		return s.LeadSvc.QueryByOwner(c.context(), c.actor().ID)
	})

	s.mutation("leads.update", agentOnly, func(c *call) (interface{}, error) {
		var in lead.UpdateLead
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.LeadSvc.Update(c.context(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.mutation("leads.import", managerOnly, func(c *call) (interface{}, error) {
		var in lead.ImportLeads
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.LeadSvc.Import(c.context(), c.actor(), in)
	})

	s.mutation("leads.importFile", managerOnly, func(c *call) (interface{}, error) {
		var in importFileInput
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		content, err := base64.StdEncoding.DecodeString(in.Content)
		if err != nil {
			return nil, newRPCError(codeBadRequest, "content must be base64 encoded")
		}
		rows, err := export.Parse(in.Format, bytes.NewReader(content))
		if err != nil {
			return nil, newRPCError(codeBadRequest, err.Error())
		}
		leads, err := export.LeadsFromRows(rows)
		if err != nil {
			return nil, newRPCError(codeBadRequest, err.Error())
		}
		return s.LeadSvc.Import(c.context(), c.actor(), lead.ImportLeads{
			Leads:      leads,
			ListID:     in.ListID,
			CampaignID: in.CampaignID,
		})
	})

	s.mutation("leads.assign", managerOnly, func(c *call) (interface{}, error) {
		var in lead.AssignLeads
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.LeadSvc.Assign(c.context(), c.actor(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.mutation("leadStatus.update", agentOnly, func(c *call) (interface{}, error) {
		var in lead.StatusUpdate
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		if err := s.LeadSvc.UpdateStatus(c.context(), c.actor(), in); err != nil {
			return nil, err
		}
		return successResult, nil
	})

	s.mutation("callLogs.create", agentOnly, func(c *call) (interface{}, error) {
		var in calllog.NewCallLog
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		cl, err := s.CallLogSvc.Create(c.context(), c.actor(), in)
		if err != nil {
			return nil, err
		}
		return echo.Map{"success": true, "callLogId": cl.ID}, nil
	})

	s.query("callLogs.getByLead", protected, func(c *call) (interface{}, error) {
		var in struct {
			LeadID int `json:"leadId" validate:"required"`
		}
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.CallLogSvc.QueryByLead(c.context(), in.LeadID)
	})

	s.query("callLogs.getByAgent", protected, func(c *call) (interface{}, error) {
		var in struct {
			AgentID int `json:"agentId" validate:"required"`
		}
		if err := c.bind(&in); err != nil {
			return nil, err
		}
		return s.CallLogSvc.QueryByAgent(c.context(), in.AgentID)
	})
}
