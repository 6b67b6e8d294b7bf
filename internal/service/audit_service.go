package service

import (
	"bytes"
	"commerce-backend/internal/model"
	"commerce-backend/internal/repository/interfaces"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/storage"
	"commerce-backend/internal/util"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const exportPageSize = 100

type AuditServiceInterface interface {
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int, error)
	Export(ctx context.Context, query ExportAuditQuery) (*ExportResult, error)
}

type AuditService struct {
	auditRepo interfaces.AuditRepository
	store     storage.Store
	now       func() time.Time
}

var _ AuditServiceInterface = (*AuditService)(nil)

func NewAuditService(auditRepo interfaces.AuditRepository, store storage.Store) *AuditService {
	return &AuditService{auditRepo: auditRepo, store: store, now: defaultNow}
}

// Record 写入一条审计日志。调用方在自己的事务内调用，写入失败会让整个事务回滚
func (s *AuditService) Record(ctx context.Context, actorID *int64, action, entityType string, entityID int64, details model.AuditDetails) error {
	entry := &model.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  s.now(),
	}
	if err := s.auditRepo.CreateAuditLog(ctx, entry); err != nil {
		return serviceErrors.Wrap(serviceErrors.ErrDatabase, "写入审计日志失败", err)
	}
	return nil
}

func (s *AuditService) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int, error) {
	logs, total, err := s.auditRepo.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, 0, serviceErrors.Wrap(serviceErrors.ErrDatabase, "获取审计日志失败", err)
	}
	return logs, total, nil
}

// ExportAuditQuery 导出时间范围 [From, To)
type ExportAuditQuery struct {
	From time.Time `json:"from" binding:"required"`
	To   time.Time `json:"to" binding:"required,gtfield=From"`
}

type ExportResult struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// Export 把时间范围内的审计日志导出为 CSV 并写入存储
func (s *AuditService) Export(ctx context.Context, query ExportAuditQuery) (*ExportResult, error) {
	if err := validateCommand(query); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, serviceErrors.New(serviceErrors.ErrInternal, "未配置导出存储")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "created_at", "actor_id", "action", "entity_type", "entity_id", "details"})

	filter := model.AuditFilter{From: &query.From, To: &query.To, PageSize: exportPageSize}
	count := 0
	for page := 1; ; page++ {
		filter.Page = page
		logs, total, err := s.auditRepo.ListAuditLogs(ctx, filter)
		if err != nil {
			return nil, serviceErrors.Wrap(serviceErrors.ErrDatabase, "读取审计日志失败", err)
		}
		for _, l := range logs {
			if err := w.Write(auditRecord(l)); err != nil {
				return nil, serviceErrors.Wrap(serviceErrors.ErrInternal, "生成导出文件失败", err)
			}
		}
		count += len(logs)
		if len(logs) == 0 || count >= total {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, serviceErrors.Wrap(serviceErrors.ErrInternal, "生成导出文件失败", err)
	}

	key := fmt.Sprintf("audit/audit_%s_%s_%d.csv",
		query.From.UTC().Format("20060102"), query.To.UTC().Format("20060102"), s.now().Unix())
	location, err := s.store.Save(ctx, key, buf.Bytes(), "text/csv")
	if err != nil {
		util.Logger.Error("保存审计导出文件失败", zap.Error(err), zap.String("key", key))
		return nil, serviceErrors.Wrap(serviceErrors.ErrThirdParty, "保存导出文件失败", err)
	}

	util.Logger.Info("审计日志导出完成", zap.String("location", location), zap.Int("count", count))
	return &ExportResult{Location: location, Count: count}, nil
}

func auditRecord(l *model.AuditLog) []string {
	actor := ""
	if l.ActorID != nil {
		actor = strconv.FormatInt(*l.ActorID, 10)
	}
	details, _ := json.Marshal(l.Details)
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.CreatedAt.UTC().Format(time.RFC3339),
		actor,
		l.Action,
		l.EntityType,
		strconv.FormatInt(l.EntityID, 10),
		string(details),
	}
}
