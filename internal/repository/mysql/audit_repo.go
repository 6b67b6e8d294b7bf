package mysql

import (
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	"commerce-backend/internal/util"
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const auditColumns = `id, actor_id, action, entity_type, entity_id, details, created_at`

type AuditRepository struct {
	db *sqlx.DB
}

var _ interfaces.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db}
}

func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *model.AuditLog) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		log.ActorID, log.Action, log.EntityType, log.EntityID, log.Details, log.CreatedAt)
	if err != nil {
		util.Logger.Error("写入审计日志失败",
			zap.Error(err),
			zap.String("action", log.Action),
			zap.Int64("entity_id", log.EntityID))
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	log.ID, err = res.LastInsertId()
	return err
}

func (r *AuditRepository) ListAuditLogs(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int, error) {
	var where []string
	var args []interface{}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != nil {
		where = append(where, "entity_id = ?")
		args = append(args, *filter.EntityID)
	}
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, *filter.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.db)
	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM audit_logs`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	var logs []*model.AuditLog
	err := sqlx.SelectContext(ctx, q, &logs,
		`SELECT `+auditColumns+` FROM audit_logs`+clause+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
