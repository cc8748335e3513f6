package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/internal/service"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
	"github.com/noah-isme/school-records-api/pkg/response"
)

type studentService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.StudentDetail, error)
	GetOwn(ctx context.Context, actor *models.JWTClaims) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter, actor *models.JWTClaims) ([]models.StudentDetail, *models.Pagination, error)
	Create(ctx context.Context, req dto.CreateStudentRequest, actor *models.JWTClaims) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateStudentRequest, actor *models.JWTClaims) (*models.StudentDetail, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	Transcript(ctx context.Context, id, format string, actor *models.JWTClaims) (*service.TranscriptFile, error)
}

// StudentHandler exposes student profile endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler builds a new handler.
func NewStudentHandler(service studentService) *StudentHandler {
	return &StudentHandler{service: service}
}

// List godoc
// @Summary List student profiles
// @Tags Students
// @Produce json
// @Param search query string false "Search in name and student number"
// @Param grade_level query string false "Grade level"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.StudentFilter{
		Search:     c.Query("search"),
		GradeLevel: c.Query("grade_level"),
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "page_size"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	students, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get one student profile
// @Tags Students
// @Produce json
// @Param id path string true "Student profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// GetOwn godoc
// @Summary Get the caller's own student profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) GetOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	student, err := h.service.GetOwn(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create a student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student profile ID"
// @Param payload body dto.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student profile
// @Tags Students
// @Param id path string true "Student profile ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transcript godoc
// @Summary Export a student's transcript as CSV or PDF
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student profile ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /students/{id}/transcript [get]
func (h *StudentHandler) Transcript(c *gin.Context) {
	claims := claimsFromContext(c)
	file, err := h.service.Transcript(c.Request.Context(), c.Param("id"), c.Query("format"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
