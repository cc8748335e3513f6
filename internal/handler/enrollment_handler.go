package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
	"github.com/noah-isme/school-records-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollStudentRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error)
	AssignGrade(ctx context.Context, id string, req dto.AssignGradeRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter, actor *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

type enrollmentMetrics interface {
	RecordEnrollmentOutcome(outcome string)
}

// EnrollmentHandler exposes enrollment lifecycle endpoints.
type EnrollmentHandler struct {
	service enrollmentService
	metrics enrollmentMetrics
}

// NewEnrollmentHandler builds a new handler.
func NewEnrollmentHandler(service enrollmentService, metrics enrollmentMetrics) *EnrollmentHandler {
	return &EnrollmentHandler{service: service, metrics: metrics}
}

// Enroll godoc
// @Summary Enroll a student into a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollStudentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), req, claims)
	if err != nil {
		h.recordOutcome(err)
		response.Error(c, err)
		return
	}
	h.recordOutcome(nil)
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollments visible to the caller
// @Tags Enrollments
// @Produce json
// @Param student_id query string false "Student profile ID"
// @Param course_id query string false "Course ID"
// @Param status query string false "Enrollment status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.EnrollmentFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.EnrollmentStatus(c.Query("status")),
		Page:      queryInt(c, "page"),
		PageSize:  queryInt(c, "page_size"),
	}

	enrollments, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get one enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	enrollment, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// UpdateStatus godoc
// @Summary Transition an enrollment to DROPPED or COMPLETED
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.UpdateEnrollmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/status [patch]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.UpdateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	enrollment, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// AssignGrade godoc
// @Summary Assign a letter grade to an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.AssignGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grade [patch]
func (h *EnrollmentHandler) AssignGrade(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.AssignGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	enrollment, err := h.service.AssignGrade(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Delete godoc
// @Summary Delete an enrollment record
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *EnrollmentHandler) recordOutcome(err error) {
	if h.metrics == nil {
		return
	}
	if err == nil {
		h.metrics.RecordEnrollmentOutcome("created")
		return
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrConflict.Code:
		h.metrics.RecordEnrollmentOutcome("conflict")
	case appErrors.ErrValidation.Code:
		h.metrics.RecordEnrollmentOutcome("rejected")
	default:
		h.metrics.RecordEnrollmentOutcome("error")
	}
}
