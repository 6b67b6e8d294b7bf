package errors

import (
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Success bool      `json:"success"`
	Code    ErrorCode `json:"code"`
	Error   string    `json:"error"`
}

// 错误码与HTTP状态码映射
var errorStatusMap = map[ErrorCode]int{
	// 系统错误 (1000-1999)
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,
	ErrTimeout:  http.StatusRequestTimeout,
	ErrGateway:  http.StatusBadGateway,

	// 认证错误 (2000-2999)
	ErrUnauthorized: http.StatusUnauthorized,
	ErrForbidden:    http.StatusForbidden,
	ErrInvalidToken: http.StatusUnauthorized,

	// 请求错误 (3000-3999)
	ErrBadRequest:       http.StatusBadRequest,
	ErrValidation:       http.StatusBadRequest,
	ErrResourceNotFound: http.StatusNotFound,
	ErrResourceExists:   http.StatusConflict,
	ErrResourceConflict: http.StatusConflict,
}

// StatusFor 返回错误码对应的 HTTP 状态码
func StatusFor(code ErrorCode) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Resolve 把任意错误归一为 AppError
func Resolve(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	var se *serviceErrors.ServiceError
	if stderrors.As(err, &se) {
		return FromServiceError(se)
	}
	return Wrap(ErrInternal, "系统内部错误", err)
}

// HandleError 统一处理错误响应，内部错误细节只写日志不返回给调用方
func HandleError(c *gin.Context, err error) {
	appErr := Resolve(err)
	status := StatusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		util.Logger.Error("请求处理失败",
			zap.Int("error_code", int(appErr.Code)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	_ = c.Error(appErr)
	c.JSON(status, ErrorResponse{
		Success: false,
		Code:    appErr.Code,
		Error:   appErr.Message,
	})
}

// HandleSuccess 统一处理成功响应，fields 平铺在 success 旁边
func HandleSuccess(c *gin.Context, status int, fields gin.H) {
	resp := gin.H{"success": true}
	for k, v := range fields {
		resp[k] = v
	}
	c.JSON(status, resp)
}
