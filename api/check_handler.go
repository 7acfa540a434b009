package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Evaluates whether the user holds the resource/action permission. The decision is audited."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/admin-access", a.adminAccess,
		forge.WithSummary("Admin section check"),
		forge.WithDescription("Evaluates whether the user may enter an admin area section. The decision is audited."),
		forge.WithOperationID("authzAdminAccess"),
		forge.WithRequestSchema(AdminAccessRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", AdminAccessResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.UserID == "" || req.Resource == "" || req.Action == "" {
		return nil, forge.BadRequest("user_id, resource, and action are required")
	}

	allowed, err := a.eng.CheckPermission(ctx.Context(), req.UserID, req.BaseRole, req.Resource, req.Action)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &CheckResponse{Allowed: allowed}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) adminAccess(ctx forge.Context, req *AdminAccessRequest) (*AdminAccessResponse, error) {
	if req.UserID == "" || req.Section == "" {
		return nil, forge.BadRequest("user_id and section are required")
	}

	allowed := a.eng.CheckAdminAccess(ctx.Context(), req.UserID, req.BaseRole, req.Section)

	resp := &AdminAccessResponse{Allowed: allowed}
	return resp, ctx.JSON(http.StatusOK, resp)
}
