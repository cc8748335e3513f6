package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/middleware"
	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type enrollmentServiceStub struct {
	enrollErr  error
	detail     *models.EnrollmentDetail
	listRows   []models.EnrollmentDetail
	lastFilter models.EnrollmentFilter
}

func (s *enrollmentServiceStub) Enroll(ctx context.Context, req dto.EnrollStudentRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if s.enrollErr != nil {
		return nil, s.enrollErr
	}
	return s.detail, nil
}

func (s *enrollmentServiceStub) UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.detail, nil
}

func (s *enrollmentServiceStub) AssignGrade(ctx context.Context, id string, req dto.AssignGradeRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.detail, nil
}

func (s *enrollmentServiceStub) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.detail, nil
}

func (s *enrollmentServiceStub) List(ctx context.Context, filter models.EnrollmentFilter, actor *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error) {
	s.lastFilter = filter
	return s.listRows, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(s.listRows)}, nil
}

func (s *enrollmentServiceStub) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return nil
}

type metricsStub struct {
	outcomes []string
}

func (m *metricsStub) RecordEnrollmentOutcome(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func newEnrollmentRouter(svc *enrollmentServiceStub, metrics *metricsStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(svc, metrics)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	})
	router.POST("/enrollments", h.Enroll)
	router.GET("/enrollments", h.List)
	router.GET("/enrollments/:id", h.Get)
	router.PATCH("/enrollments/:id/status", h.UpdateStatus)
	router.DELETE("/enrollments/:id", h.Delete)
	return router
}

func TestEnrollHandlerCreated(t *testing.T) {
	svc := &enrollmentServiceStub{
		detail: &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusEnrolled}},
	}
	metrics := &metricsStub{}
	router := newEnrollmentRouter(svc, metrics)

	body := `{"student_id":"6f1e1d3a-8c4b-4a1e-9a2b-0d9f6c1b2a3c","course_id":"2b7c9e5d-3f1a-4c8e-b6d4-7a5e9c3b1d2f"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.EnrollmentDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "enr-1", envelope.Data.ID)
	assert.Equal(t, []string{"created"}, metrics.outcomes)
}

func TestEnrollHandlerConflict(t *testing.T) {
	svc := &enrollmentServiceStub{enrollErr: appErrors.Clone(appErrors.ErrConflict, "course is full")}
	metrics := &metricsStub{}
	router := newEnrollmentRouter(svc, metrics)

	body := `{"student_id":"6f1e1d3a-8c4b-4a1e-9a2b-0d9f6c1b2a3c","course_id":"2b7c9e5d-3f1a-4c8e-b6d4-7a5e9c3b1d2f"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "course is full", envelope.Error.Message)
	assert.Equal(t, []string{"conflict"}, metrics.outcomes)
}

func TestEnrollHandlerMalformedBody(t *testing.T) {
	svc := &enrollmentServiceStub{}
	router := newEnrollmentRouter(svc, &metricsStub{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHandlerParsesQuery(t *testing.T) {
	svc := &enrollmentServiceStub{listRows: []models.EnrollmentDetail{}}
	router := newEnrollmentRouter(svc, &metricsStub{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/enrollments?course_id=course-1&status=ENROLLED&page=2&page_size=10", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "course-1", svc.lastFilter.CourseID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, svc.lastFilter.Status)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 10, svc.lastFilter.PageSize)
}

func TestDeleteHandlerNoContent(t *testing.T) {
	svc := &enrollmentServiceStub{}
	router := newEnrollmentRouter(svc, &metricsStub{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/enrollments/enr-1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
