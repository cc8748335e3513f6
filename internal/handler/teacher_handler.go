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

type teacherService interface {
	Get(ctx context.Context, id string) (*models.TeacherDetail, error)
	GetOwn(ctx context.Context, actor *models.JWTClaims) (*models.TeacherDetail, error)
	List(ctx context.Context, filter models.TeacherFilter, actor *models.JWTClaims) ([]models.TeacherDetail, *models.Pagination, error)
	Create(ctx context.Context, req dto.CreateTeacherRequest, actor *models.JWTClaims) (*models.TeacherDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateTeacherRequest, actor *models.JWTClaims) (*models.TeacherDetail, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// TeacherHandler exposes teacher profile endpoints.
type TeacherHandler struct {
	service teacherService
}

// NewTeacherHandler builds a new handler.
func NewTeacherHandler(service teacherService) *TeacherHandler {
	return &TeacherHandler{service: service}
}

// List godoc
// @Summary List teacher profiles
// @Tags Teachers
// @Produce json
// @Param search query string false "Search in name and teacher number"
// @Param department query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.TeacherFilter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "page_size"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	teachers, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get one teacher profile
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// GetOwn godoc
// @Summary Get the caller's own teacher profile
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers/me [get]
func (h *TeacherHandler) GetOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	teacher, err := h.service.GetOwn(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Create godoc
// @Summary Create a teacher profile
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teachers [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}
	teacher, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Update a teacher profile
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Param payload body dto.UpdateTeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.UpdateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}
	teacher, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Delete a teacher profile
// @Tags Teachers
// @Param id path string true "Teacher profile ID"
// @Success 204
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
