package interfaces

import (
	"commerce-backend/internal/model"
	"context"
)

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, log *model.AuditLog) error
	ListAuditLogs(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int, error)
}
