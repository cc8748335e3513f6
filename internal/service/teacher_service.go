package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/internal/repository"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// TeacherService manages teacher profiles.
type TeacherService struct {
	repo      teacherRepository
	access    studentAccess
	dashboard dashboardInvalidator
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, access studentAccess, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, access: access, dashboard: dashboard, validate: validate, logger: logger}
}

// Get returns one teacher profile.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	return s.find(ctx, id)
}

// GetOwn returns the caller's own teacher profile.
func (s *TeacherService) GetOwn(ctx context.Context, actor *models.JWTClaims) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// List returns teacher profiles matching the filter. Staff only.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter, actor *models.JWTClaims) ([]models.TeacherDetail, *models.Pagination, error) {
	if err := s.access.Authorize(actor.Role, models.ActionViewAny); err != nil {
		return nil, nil, err
	}
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if teachers == nil {
		teachers = []models.TeacherDetail{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a teacher profile for an existing user account.
func (s *TeacherService) Create(ctx context.Context, req dto.CreateTeacherRequest, actor *models.JWTClaims) (*models.TeacherDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionCreateProfile); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		UserID:          req.UserID,
		TeacherID:       req.TeacherID,
		Department:      req.Department,
		Specialization:  req.Specialization,
		Qualification:   req.Qualification,
		ExperienceYears: req.ExperienceYears,
		OfficeRoom:      req.OfficeRoom,
		Active:          true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicateTeacher) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher profile already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("teacher created", "teacher_id", teacher.ID, "actor", actor.UserID)
	return s.find(ctx, teacher.ID)
}

// Update modifies a teacher profile.
func (s *TeacherService) Update(ctx context.Context, id string, req dto.UpdateTeacherRequest, actor *models.JWTClaims) (*models.TeacherDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionEditProfile); err != nil {
		return nil, err
	}

	detail, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher := detail.Teacher

	if req.Department != nil {
		teacher.Department = *req.Department
	}
	if req.Specialization != nil {
		teacher.Specialization = req.Specialization
	}
	if req.Qualification != nil {
		teacher.Qualification = req.Qualification
	}
	if req.ExperienceYears != nil {
		teacher.ExperienceYears = *req.ExperienceYears
	}
	if req.OfficeRoom != nil {
		teacher.OfficeRoom = req.OfficeRoom
	}
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &teacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("teacher updated", "teacher_id", id, "actor", actor.UserID)
	return s.find(ctx, id)
}

// Delete removes a teacher profile.
func (s *TeacherService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.access.Authorize(actor.Role, models.ActionDeleteProfile); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("teacher deleted", "teacher_id", id, "actor", actor.UserID)
	return nil
}

func (s *TeacherService) find(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}
