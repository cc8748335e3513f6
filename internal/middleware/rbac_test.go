package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-records-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	router.GET("/resource/:id", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, path string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRBACAllowsListedRole(t *testing.T) {
	admin := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	router := rbacRouter(admin, "ADMIN", "TEACHER")
	assert.Equal(t, http.StatusOK, doRequest(router, "/resource/42"))
}

func TestRBACRejectsOtherRole(t *testing.T) {
	student := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	router := rbacRouter(student, "ADMIN", "TEACHER")
	assert.Equal(t, http.StatusForbidden, doRequest(router, "/resource/42"))
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	router := rbacRouter(nil, "ADMIN")
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "/resource/42"))
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	student := &models.JWTClaims{UserID: "user-7", Role: models.RoleStudent}
	router := rbacRouter(student, "ADMIN", "SELF")

	assert.Equal(t, http.StatusOK, doRequest(router, "/resource/user-7"))
	assert.Equal(t, http.StatusForbidden, doRequest(router, "/resource/user-8"))
}
