package middleware

import (
	"commerce-backend/config"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/testutil"
	"commerce-backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRouter(t *testing.T, handlers ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig.JWTSecret = "test-secret"

	r := gin.New()
	r.GET("/x", append(handlers, func(c *gin.Context) {
		id := int64(0)
		if actor := ActorID(c); actor != nil {
			id = *actor
		}
		c.JSON(http.StatusOK, gin.H{"actor_id": id, "role": Role(c)})
	})...)
	return r
}

func bearer(t *testing.T, userID int64, role string) string {
	t.Helper()
	return "Bearer " + testutil.Token(t, userID, role)
}

func serve(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter(t, AuthMiddleware())

	w := serve(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "无效或过期的令牌")

	w = serve(r, bearer(t, 42, util.RoleCustomer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor_id":42,"role":"customer"}`, w.Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := setupRouter(t, OptionalAuthMiddleware())

	w := serve(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor_id":0,"role":""}`, w.Body.String())

	w = serve(r, bearer(t, 7, util.RoleCustomer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor_id":7,"role":"customer"}`, w.Body.String())

	w = serve(r, "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddleware(t *testing.T) {
	r := setupRouter(t, AuthMiddleware(), AdminMiddleware())

	w := serve(r, bearer(t, 7, util.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "需要管理员权限")

	w = serve(r, bearer(t, 1, util.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, bearer(t, 2, util.RoleStaff))
	assert.Equal(t, http.StatusOK, w.Code)

	unauthenticated := setupRouter(t, AdminMiddleware())
	w = serve(unauthenticated, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	monitor := NewErrorMonitor()
	r := gin.New()
	r.Use(RecoveryMiddleware(), ErrorMonitorMiddleware(monitor))
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	r.GET("/missing", func(c *gin.Context) {
		errors.HandleError(c, errors.New(errors.ErrResourceNotFound, "不存在"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "系统内部错误")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, monitor.GetErrorCounts()[errors.ErrResourceNotFound])
}
