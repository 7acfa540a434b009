package aegis

import (
	"context"
	"io"
	"log/slog"

	"github.com/xraph/aegis/auditlog"
	"github.com/xraph/aegis/id"
)

// LogAction records an arbitrary audited action for a user. The write
// is best-effort: a store failure is logged, surfaced to
// AuditWriteFailed hooks, and never propagated to the caller.
func (e *Engine) LogAction(ctx context.Context, userID, action, resource, resourceID string, details map[string]any, success bool) {
	e.audit(ctx, userID, action, resource, resourceID, details, success)
}

// LogPermissionCheck records a permission check outcome without
// evaluating it. Most callers want CheckPermission, which evaluates
// and records in one step; this exists for hosts that resolve the
// decision elsewhere but still want it in the trail.
func (e *Engine) LogPermissionCheck(ctx context.Context, userID, resource, action string, allowed bool) {
	auditAction := AccessGrantedAction(resource, action)
	if !allowed {
		auditAction = AccessDeniedAction(resource, action)
	}
	e.audit(ctx, userID, auditAction, resource, "", nil, allowed)
}

// LogAdminAccess records a visit to an admin area section.
func (e *Engine) LogAdminAccess(ctx context.Context, userID, section string) {
	e.audit(ctx, userID, AdminAccessAction(section), "admin", section, nil, true)
}

// LogContentAction records a content lifecycle event such as publish
// or delete.
func (e *Engine) LogContentAction(ctx context.Context, userID, action, contentID string, details map[string]any) {
	e.audit(ctx, userID, ContentAction(action), "content", contentID, details, true)
}

// LogMediaAction records a media lifecycle event such as upload.
func (e *Engine) LogMediaAction(ctx context.Context, userID, action, mediaID string, details map[string]any) {
	e.audit(ctx, userID, MediaAction(action), "media", mediaID, details, true)
}

// GetAuditLogs returns audit entries matching the filter, newest first.
// StartDate and EndDate bounds are both inclusive.
func (e *Engine) GetAuditLogs(ctx context.Context, filter *auditlog.QueryFilter) ([]*auditlog.Entry, error) {
	return e.store.ListEntries(ctx, filter)
}

// CountAuditLogs returns the number of entries matching the filter.
func (e *Engine) CountAuditLogs(ctx context.Context, filter *auditlog.QueryFilter) (int64, error) {
	return e.store.CountEntries(ctx, filter)
}

// ExportAuditLogsCSV streams entries matching the filter to w as CSV,
// newest first.
func (e *Engine) ExportAuditLogsCSV(ctx context.Context, w io.Writer, filter *auditlog.QueryFilter) error {
	entries, err := e.store.ListEntries(ctx, filter)
	if err != nil {
		return err
	}
	return auditlog.WriteCSV(w, entries)
}

// audit writes one entry to the trail. Failures never abort the
// operation being audited; they are logged and surfaced to hooks so a
// monitoring hook can alert on trail gaps.
func (e *Engine) audit(ctx context.Context, userID, action, resource, resourceID string, details map[string]any, success bool) {
	if !e.config.auditEnabled() {
		return
	}

	if userID == "" {
		userID = AnonymousUser
	}
	meta := RequestMetaFromContext(ctx)

	entry := &auditlog.Entry{
		ID:         id.NewAuditLogID(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		Success:    success,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		CreatedAt:  e.now(),
	}

	if err := e.store.CreateEntry(ctx, entry); err != nil {
		e.logger.Warn("audit write failed",
			slog.String("action", action),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		e.hooks.EmitAuditWriteFailed(ctx, entry, err)
	}
}
