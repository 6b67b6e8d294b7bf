package service

import (
	"commerce-backend/internal/repository/interfaces"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/util"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

func defaultNow() time.Time {
	return time.Now().UTC()
}

// validateCommand 在开启事务前校验命令
func validateCommand(cmd interface{}) error {
	err := util.Validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return serviceErrors.Wrap(serviceErrors.ErrInvalidInput,
			fmt.Sprintf("参数 %s 不合法（%s）", fe.Field(), fe.Tag()), err)
	}
	return serviceErrors.Wrap(serviceErrors.ErrInvalidInput, "参数不合法", err)
}

// asServiceError 保留已有的服务错误，其余视为数据库错误
func asServiceError(err error, message string) error {
	if err == nil {
		return nil
	}
	if serviceErrors.IsServiceError(err) {
		return err
	}
	if errors.Is(err, interfaces.ErrConditionFailed) {
		return serviceErrors.Wrap(serviceErrors.ErrConflict, message, err)
	}
	return serviceErrors.Wrap(serviceErrors.ErrDatabase, message, err)
}

func conflict(format string, args ...interface{}) error {
	return serviceErrors.New(serviceErrors.ErrConflict, fmt.Sprintf(format, args...))
}

func notFound(message string) error {
	return serviceErrors.New(serviceErrors.ErrNotFound, message)
}
