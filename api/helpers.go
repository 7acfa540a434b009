package api

import (
	"context"
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
)

// actorContext attributes engine mutations to the calling user when the
// host auth layer has not already set an actor.
func actorContext(ctx forge.Context) context.Context {
	c := ctx.Context()
	if _, ok := aegis.ActorFromContext(c); ok {
		return c
	}
	if userID := forge.UserIDFromContext(c); userID != "" {
		return aegis.WithActor(c, aegis.Actor{ID: userID, Role: aegis.RoleUser})
	}
	return c
}

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, aegis.ErrSystemRoleImmutable) || errors.Is(err, aegis.ErrSystemPermissionImmutable) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, aegis.ErrDuplicateRole) || errors.Is(err, aegis.ErrDuplicatePermission) || errors.Is(err, aegis.ErrDuplicateAssignment) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, aegis.ErrRoleInUse) || errors.Is(err, aegis.ErrPermissionInUse) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, aegis.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, aegis.ErrRoleNotFound) ||
		errors.Is(err, aegis.ErrPermissionNotFound) ||
		errors.Is(err, aegis.ErrAssignmentNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
