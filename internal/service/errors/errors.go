package errors

import (
	"errors"
	"fmt"
)

// ServiceError 定义服务层错误，Message 面向用户
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// ErrorCode 定义错误码类型
type ErrorCode int

const (
	// 数据库错误
	ErrDatabase ErrorCode = iota + 1000
	ErrNotFound
	ErrDuplicate

	// 业务逻辑错误
	ErrInvalidInput
	ErrUnauthorized
	ErrForbidden
	// ErrConflict 违反业务不变量（状态流转、金额上限、库存为负等），事务已回滚
	ErrConflict

	// 系统错误
	ErrInternal
	ErrThirdParty
)

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// New 创建新的服务错误
func New(code ErrorCode, message string) error {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) error {
	return &ServiceError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsServiceError 判断是否为服务错误
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// GetErrorCode 获取错误码
func GetErrorCode(err error) ErrorCode {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrInternal
}

// Is 判断 err 是否为指定错误码的服务错误
func Is(err error, code ErrorCode) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}
