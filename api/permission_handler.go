package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Creates a new permission. The resource/action pair is unique."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithDescription("Returns details of a specific permission."),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithDescription("Deletes a permission. Permissions referenced by roles cannot be deleted."),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithDescription("Lists permissions with optional filters."),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", ListResponse[*permission.Permission]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId/usage", a.getPermissionUsage,
		forge.WithSummary("Get permission usage"),
		forge.WithDescription("Reports how many roles and users reference the permission."),
		forge.WithOperationID("getPermissionUsage"),
		forge.WithResponseSchema(http.StatusOK, "Usage counts", PermissionUsageResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/users/:userId/permissions", a.listUserPermissions,
		forge.WithSummary("List user permissions"),
		forge.WithDescription("Lists the distinct permissions a user holds through active role assignments."),
		forge.WithOperationID("listUserPermissions"),
		forge.WithResponseSchema(http.StatusOK, "Permission list", []*permission.Permission{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	if req.Resource == "" || req.Action == "" {
		return nil, forge.BadRequest("resource and action are required")
	}

	p, err := a.eng.CreatePermission(actorContext(ctx), req.Resource, req.Action, req.Description)
	if err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	p, err := a.eng.GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	if err := a.eng.DeletePermission(actorContext(ctx), permID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) (*ListResponse[*permission.Permission], error) {
	filter := &permission.ListFilter{
		Resource: req.Resource,
		Action:   req.Action,
		Search:   req.Search,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}

	perms, err := a.eng.ListPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*permission.Permission]{
		Items:  perms,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getPermissionUsage(ctx forge.Context, _ *GetPermissionRequest) (*PermissionUsageResponse, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	usage, err := a.eng.GetPermissionUsage(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &PermissionUsageResponse{Roles: usage.Roles, Users: usage.Users}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listUserPermissions(ctx forge.Context, _ *GetUserRequest) ([]*permission.Permission, error) {
	userID := ctx.Param("userId")
	if userID == "" {
		return nil, forge.BadRequest("user ID is required")
	}

	perms, err := a.eng.GetUserPermissions(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}

	return perms, ctx.JSON(http.StatusOK, perms)
}
