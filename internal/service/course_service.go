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

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type courseTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error)
}

type courseAccess interface {
	Authorize(role models.UserRole, action models.Action) error
	AuthorizeObject(role models.UserRole, userID string, action models.Action, ownerUserID string) error
}

type dashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// CourseService manages the course catalogue. Creation and deletion are
// admin-only; an assigned teacher may edit their own course.
type CourseService struct {
	repo      courseRepository
	teachers  courseTeacherReader
	access    courseAccess
	dashboard dashboardInvalidator
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, teachers courseTeacherReader, access courseAccess, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, teachers: teachers, access: access, dashboard: dashboard, validate: validate, logger: logger}
}

// Create registers a new course offering. Admin only.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest, actor *models.JWTClaims) (*models.CourseDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionCreateCourse); err != nil {
		return nil, err
	}

	if req.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "assigned teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
		}
	}

	course := &models.Course{
		CourseCode:   req.CourseCode,
		CourseName:   req.CourseName,
		Description:  req.Description,
		TeacherID:    req.TeacherID,
		Credits:      req.Credits,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Schedule:     req.Schedule,
		Room:         req.Room,
		MaxStudents:  req.MaxStudents,
		Status:       models.CourseStatusActive,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicateCourse) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists for this term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("course created", "course_id", course.ID, "course_code", course.CourseCode, "actor", actor.UserID)
	return s.detail(ctx, course.ID)
}

// Update modifies a course. Admins may edit any course; a teacher only the
// course they are assigned to.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest, actor *models.JWTClaims) (*models.CourseDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionEditCourse); err != nil {
		return nil, err
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if actor.Role != models.RoleAdmin {
		ownerUserID := ""
		if course.TeacherID != nil {
			owner, err := s.teachers.FindByID(ctx, *course.TeacherID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course owner")
			}
			if owner != nil {
				ownerUserID = owner.UserID
			}
		}
		if err := s.access.AuthorizeObject(actor.Role, actor.UserID, models.ActionEditCourse, ownerUserID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned teacher may edit this course")
		}
	}

	if req.CourseName != nil {
		course.CourseName = *req.CourseName
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "assigned teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
		}
		course.TeacherID = req.TeacherID
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Schedule != nil {
		course.Schedule = req.Schedule
	}
	if req.Room != nil {
		course.Room = req.Room
	}
	if req.MaxStudents != nil {
		course.MaxStudents = *req.MaxStudents
	}
	if req.Status != nil {
		course.Status = models.CourseStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("course updated", "course_id", id, "actor", actor.UserID)
	return s.detail(ctx, id)
}

// Delete removes a course. Admin only.
func (s *CourseService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.access.Authorize(actor.Role, models.ActionDeleteCourse); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("course deleted", "course_id", id, "actor", actor.UserID)
	return nil
}

// Get returns one course with its live enrolled count.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	return s.detail(ctx, id)
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.CourseDetail{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *CourseService) detail(ctx context.Context, id string) (*models.CourseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return detail, nil
}
