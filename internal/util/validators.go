package util

import (
	"commerce-backend/internal/model"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validate 服务层命令校验器，读取与 gin 绑定相同的 binding 标签
var Validate = NewValidator()

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

func NewValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

// RegisterValidations 注册自定义校验规则
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("adjust_reason", ValidateAdjustReason)
	_ = v.RegisterValidation("currency", ValidateCurrency)
}

// ValidateAdjustReason 库存调整原因必须是预定义的枚举
func ValidateAdjustReason(fl validator.FieldLevel) bool {
	return model.AdjustmentReason(fl.Field().String()).Valid()
}

// ValidateCurrency 三位大写货币代码
func ValidateCurrency(fl validator.FieldLevel) bool {
	return currencyPattern.MatchString(fl.Field().String())
}
