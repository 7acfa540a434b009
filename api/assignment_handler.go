package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/aegis/assignment"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/role"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	if err := g.POST("/assignments", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Assigns a role to a user, optionally with an expiry."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithCreatedResponse(&assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/assignments/bulk", a.bulkAssignRole,
		forge.WithSummary("Bulk assign role"),
		forge.WithDescription("Assigns one role to many users. Individual failures do not abort the batch."),
		forge.WithOperationID("bulkAssignRole"),
		forge.WithRequestSchema(BulkAssignRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Per-user outcomes", BulkAssignRoleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/users/:userId/roles/:roleId", a.removeRole,
		forge.WithSummary("Remove role"),
		forge.WithDescription("Removes a role assignment from a user."),
		forge.WithOperationID("removeRole"),
		forge.WithResponseSchema(http.StatusOK, "Removal outcome", RemoveRoleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/roles", a.listUserRoles,
		forge.WithSummary("List user roles"),
		forge.WithDescription("Lists the roles a user holds through active assignments."),
		forge.WithOperationID("listUserRoles"),
		forge.WithResponseSchema(http.StatusOK, "Role list", []*role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/assignments", a.listUserAssignments,
		forge.WithSummary("List user assignments"),
		forge.WithDescription("Lists the active role assignments for a user."),
		forge.WithOperationID("listUserAssignments"),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId/assignments", a.listRoleAssignments,
		forge.WithSummary("List role assignments"),
		forge.WithDescription("Lists all assignments of a role."),
		forge.WithOperationID("listRoleAssignments"),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/assignments/purge-expired", a.purgeExpiredAssignments,
		forge.WithSummary("Purge expired assignments"),
		forge.WithDescription("Deletes all expired role assignments and returns the count removed."),
		forge.WithOperationID("purgeExpiredAssignments"),
		forge.WithResponseSchema(http.StatusOK, "Purge count", map[string]int64{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*assignment.Assignment, error) {
	if req.UserID == "" || req.RoleID == "" {
		return nil, forge.BadRequest("user_id and role_id are required")
	}

	roleID, err := id.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	asgn, err := a.eng.AssignRole(actorContext(ctx), req.UserID, roleID, expiresAt)
	if err != nil {
		return nil, mapError(err)
	}

	return asgn, ctx.JSON(http.StatusCreated, asgn)
}

func (a *API) bulkAssignRole(ctx forge.Context, req *BulkAssignRoleRequest) (*BulkAssignRoleResponse, error) {
	if len(req.UserIDs) == 0 || req.RoleID == "" {
		return nil, forge.BadRequest("user_ids and role_id are required")
	}

	roleID, err := id.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	resp := &BulkAssignRoleResponse{}
	for _, userID := range req.UserIDs {
		if _, err := a.eng.AssignRole(actorContext(ctx), userID, roleID, expiresAt); err != nil {
			if resp.Failed == nil {
				resp.Failed = make(map[string]string)
			}
			resp.Failed[userID] = err.Error()
			continue
		}
		resp.Assigned++
	}

	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) removeRole(ctx forge.Context, _ *RemoveRoleRequest) (*RemoveRoleResponse, error) {
	userID := ctx.Param("userId")
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	removed, err := a.eng.RemoveRole(actorContext(ctx), userID, roleID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &RemoveRoleResponse{Removed: removed}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listUserRoles(ctx forge.Context, _ *GetUserRequest) ([]*role.Role, error) {
	userID := ctx.Param("userId")
	if userID == "" {
		return nil, forge.BadRequest("user ID is required")
	}

	roles, err := a.eng.ListUserRoles(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}

	return roles, ctx.JSON(http.StatusOK, roles)
}

func (a *API) listUserAssignments(ctx forge.Context, _ *GetUserRequest) ([]*assignment.Assignment, error) {
	userID := ctx.Param("userId")
	if userID == "" {
		return nil, forge.BadRequest("user ID is required")
	}

	asgns, err := a.eng.ListUserAssignments(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(err)
	}

	return asgns, ctx.JSON(http.StatusOK, asgns)
}

func (a *API) listRoleAssignments(ctx forge.Context, _ *GetRoleRequest) ([]*assignment.Assignment, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	asgns, err := a.eng.ListRoleAssignments(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}

	return asgns, ctx.JSON(http.StatusOK, asgns)
}

func (a *API) purgeExpiredAssignments(ctx forge.Context, _ *struct{}) (map[string]int64, error) {
	n, err := a.eng.PurgeExpiredAssignments(actorContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}

	resp := map[string]int64{"purged": n}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid expires_at: %v", err))
	}
	return &t, nil
}
