package shared

import (
	"context"

	"go.uber.org/zap"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/requestctx"
)

type Auditor interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// RecordAudit stores an audit event for the caller. Failures are logged;
// the request has already succeeded.
func RecordAudit(ctx context.Context, a Auditor, log *zap.Logger, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if a == nil {
		return
	}
	if err := a.Record(ctx, user.TenantID, user.UserID, action, entityType, entityID, requestctx.GetRequestID(ctx), requestctx.GetIP(ctx), before, after); err != nil && log != nil {
		log.Warn("audit record failed", zap.String("action", action), zap.String("entityId", entityID), zap.Error(err))
	}
}
