package logging

import (
	"context"

	"go.uber.org/zap"
)

// AuditAction names a state-changing operation recorded in the audit trail.
type AuditAction string

const (
	AuditCreate    AuditAction = "create"
	AuditUpdate    AuditAction = "update"
	AuditDelete    AuditAction = "delete"
	AuditToggle    AuditAction = "toggle"
	AuditRate      AuditAction = "rate"
	AuditReconcile AuditAction = "reconcile"
)

// Audit resource types.
const (
	ResourceFarm    = "farm"
	ResourcePost    = "post"
	ResourceProfile = "profile"
	ResourceMedia   = "media"
)

// Audit results.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// LogAuditEvent logs a structured audit event for a marketplace write.
//
// Args:
//   - action: the operation performed
//   - userID: the caller performing it ("system" for background jobs)
//   - resourceType: one of the Resource* constants
//   - resourceID: the document identifier
//   - result: AuditSuccess or AuditFailure
//   - details: optional additional details, never raw payloads
func LogAuditEvent(
	ctx context.Context,
	action AuditAction,
	userID, resourceType, resourceID, result string,
	details map[string]any,
) {
	fields := []zap.Field{
		zap.String("audit.action", string(action)),
		zap.String("audit.user_id", userID),
		zap.String("audit.resource_type", resourceType),
		zap.String("audit.resource_id", resourceID),
		zap.String("audit.result", result),
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("audit.details", details))
	}
	LoggerFromContext(ctx).Info("Audit event", fields...)
}
