package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/aegis/auditlog"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("audit"))

	if err := g.GET("/audit-logs", a.listAuditLogs,
		forge.WithSummary("Query audit logs"),
		forge.WithDescription("Lists audit entries, newest first, with optional filters."),
		forge.WithOperationID("listAuditLogs"),
		forge.WithRequestSchema(ListAuditLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit entries", ListResponse[*auditlog.Entry]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/audit-logs/export", a.exportAuditLogs,
		forge.WithSummary("Export audit logs"),
		forge.WithDescription("Streams matching audit entries as a CSV download."),
		forge.WithOperationID("exportAuditLogs"),
		forge.WithRequestSchema(ListAuditLogsRequest{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAuditLogs(ctx forge.Context, req *ListAuditLogsRequest) (*ListResponse[*auditlog.Entry], error) {
	filter, err := toAuditFilter(req)
	if err != nil {
		return nil, err
	}
	filter.Limit = defaultLimit(req.Limit)
	filter.Offset = req.Offset

	entries, err := a.eng.GetAuditLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountAuditLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*auditlog.Entry]{
		Items:  entries,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) exportAuditLogs(ctx forge.Context, req *ListAuditLogsRequest) (*struct{}, error) {
	filter, err := toAuditFilter(req)
	if err != nil {
		return nil, err
	}

	ctx.SetHeader("Content-Type", "text/csv")
	ctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		"audit-logs-"+time.Now().UTC().Format("2006-01-02")+".csv"))

	if err := a.eng.ExportAuditLogsCSV(ctx.Context(), ctx.Response(), filter); err != nil {
		return nil, mapError(err)
	}
	return nil, nil
}

func toAuditFilter(req *ListAuditLogsRequest) (*auditlog.QueryFilter, error) {
	filter := &auditlog.QueryFilter{
		UserID:   req.UserID,
		Action:   req.Action,
		Resource: req.Resource,
	}

	switch req.Success {
	case "":
	case "true":
		t := true
		filter.Success = &t
	case "false":
		f := false
		filter.Success = &f
	default:
		return nil, forge.BadRequest("success must be true or false")
	}

	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid start_date: %v", err))
		}
		filter.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid end_date: %v", err))
		}
		filter.EndDate = &t
	}

	return filter, nil
}
