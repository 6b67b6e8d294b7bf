package audit

import (
	"commerce-backend/internal/api/request"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/model"
	"commerce-backend/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditServiceInterface
}

func NewAuditHandler(auditService service.AuditServiceInterface) *AuditHandler {
	return &AuditHandler{auditService}
}

// List 支持 action、entity_type、entity_id、from、to 过滤
func (h *AuditHandler) List(c *gin.Context) {
	page, pageSize := request.Page(c)
	entityID, err := request.QueryInt64(c, "entity_id")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	from, err := request.QueryTime(c, "from")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	to, err := request.QueryTime(c, "to")
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	logs, total, err := h.auditService.List(c.Request.Context(), model.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
		From:       from,
		To:         to,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"logs":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Export 导出时间范围内的审计日志
func (h *AuditHandler) Export(c *gin.Context) {
	var query service.ExportAuditQuery
	if err := request.BindJSON(c, &query); err != nil {
		errors.HandleError(c, err)
		return
	}
	result, err := h.auditService.Export(c.Request.Context(), query)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusCreated, gin.H{"export": result})
}
