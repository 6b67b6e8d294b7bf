// Package request 处理器共用的参数解析
package request

import (
	"commerce-backend/internal/errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// ParamID 解析路径中的正整数ID
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(errors.ErrBadRequest, "无效的"+name)
	}
	return id, nil
}

// BindJSON 绑定并校验请求体，失败时返回校验错误
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return errors.Wrap(errors.ErrValidation, "无效的请求数据", err)
	}
	return nil
}

// Page 解析分页参数
func Page(c *gin.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// QueryInt64 可选的整数查询参数
func QueryInt64(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New(errors.ErrBadRequest, "无效的"+name)
	}
	return &v, nil
}

// QueryTime 可选的 RFC3339 时间参数
func QueryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New(errors.ErrBadRequest, "无效的"+name+"，需要 RFC3339 格式")
	}
	t = t.UTC()
	return &t, nil
}
