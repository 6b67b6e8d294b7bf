package errors

import (
	"fmt"

	serviceErrors "commerce-backend/internal/service/errors"
)

// ErrorCode 定义错误码类型
type ErrorCode int

// 定义系统级错误码 (1000-1999)
const (
	ErrInternal ErrorCode = 1000 + iota
	ErrDatabase
	ErrTimeout
	ErrGateway
)

// 定义认证相关错误码 (2000-2999)
const (
	ErrUnauthorized ErrorCode = 2000 + iota
	ErrForbidden
	ErrInvalidToken
)

// 定义请求相关错误码 (3000-3999)
const (
	ErrBadRequest ErrorCode = 3000 + iota
	ErrValidation
	ErrResourceNotFound
	ErrResourceExists
	ErrResourceConflict
)

// AppError 定义应用错误结构
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 服务层错误码到接口错误码的映射
var serviceCodeMap = map[serviceErrors.ErrorCode]ErrorCode{
	serviceErrors.ErrDatabase:     ErrDatabase,
	serviceErrors.ErrNotFound:     ErrResourceNotFound,
	serviceErrors.ErrDuplicate:    ErrResourceExists,
	serviceErrors.ErrInvalidInput: ErrValidation,
	serviceErrors.ErrUnauthorized: ErrUnauthorized,
	serviceErrors.ErrForbidden:    ErrForbidden,
	serviceErrors.ErrConflict:     ErrResourceConflict,
	serviceErrors.ErrInternal:     ErrInternal,
	serviceErrors.ErrThirdParty:   ErrGateway,
}

// FromServiceError 把服务层错误转换为接口错误
func FromServiceError(se *serviceErrors.ServiceError) *AppError {
	code, ok := serviceCodeMap[se.Code]
	if !ok {
		code = ErrInternal
	}
	return &AppError{Code: code, Message: se.Message, Err: se.Err}
}
