package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/internal/repository"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type enrollmentRepository interface {
	CreateEnrolled(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	UpdateStatusGrade(ctx context.Context, id string, from, to models.EnrollmentStatus, grade *models.Grade, gradePoints *float64) error
	UpdateGrade(ctx context.Context, id string, grade models.Grade, gradePoints *float64) error
	Delete(ctx context.Context, id string) error
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type enrollmentAccess interface {
	Authorize(role models.UserRole, action models.Action) error
	AuthorizeObject(role models.UserRole, userID string, action models.Action, ownerUserID string) error
	ScopeEnrollments(ctx context.Context, claims *models.JWTClaims, filter *models.EnrollmentFilter) (bool, error)
}

type gpaScheduler interface {
	ScheduleRecalc(ctx context.Context, studentID string)
}

// EnrollmentService owns the enrollment lifecycle: creation against course
// capacity, status transitions, grading and roster queries. Every operation
// is authorized against the caller's role before any data is touched.
type EnrollmentService struct {
	repo     enrollmentRepository
	students enrollmentStudentReader
	access   enrollmentAccess
	gpa      gpaScheduler
	validate *validator.Validate
	logger   *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentReader, access enrollmentAccess, gpa gpaScheduler, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, access: access, gpa: gpa, validate: validate, logger: logger}
}

// Enroll places a student into a course. Students may only enroll themselves;
// staff may enroll anyone. Capacity and duplicate checks run inside a single
// transaction, so racing requests can never overfill a course.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollStudentRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionCreateEnrollment); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if actor.Role == models.RoleStudent {
		if err := s.access.AuthorizeObject(actor.Role, actor.UserID, models.ActionCreateEnrollment, student.UserID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only enroll themselves")
		}
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student profile is inactive")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID}
	if err := s.repo.CreateEnrolled(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case errors.Is(err, repository.ErrCourseNotActive):
			return nil, appErrors.Clone(appErrors.ErrValidation, "course is not open for enrollment")
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
		case errors.Is(err, repository.ErrCourseFull):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Sugar().Infow("student enrolled",
		"enrollment_id", enrollment.ID,
		"student_id", enrollment.StudentID,
		"course_id", enrollment.CourseID,
		"actor", actor.UserID,
	)
	return s.detail(ctx, enrollment.ID)
}

// UpdateStatus transitions an enrollment out of ENROLLED. DROPPED and
// COMPLETED are terminal; a terminal row never transitions again. A grade may
// ride along with a COMPLETED transition.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionEditEnrollment); err != nil {
		return nil, err
	}

	to := models.EnrollmentStatus(req.Status)
	if !to.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollments can only transition to DROPPED or COMPLETED")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if current.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment is already %s", current.Status))
	}

	var (
		grade  *models.Grade
		points *float64
	)
	if req.Grade != nil {
		g := models.Grade(*req.Grade)
		points, err = DerivePoints(g)
		if err != nil {
			return nil, err
		}
		grade = &g
	}

	if err := s.repo.UpdateStatusGrade(ctx, id, current.Status, to, grade, points); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	if grade != nil {
		s.gpa.ScheduleRecalc(ctx, current.StudentID)
	}
	s.logger.Sugar().Infow("enrollment status updated",
		"enrollment_id", id, "from", current.Status, "to", to, "actor", actor.UserID)
	return s.detail(ctx, id)
}

// AssignGrade records a letter grade and its derived points, then schedules a
// GPA recalculation for the student.
func (s *EnrollmentService) AssignGrade(ctx context.Context, id string, req dto.AssignGradeRequest, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionEditEnrollment); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	grade := models.Grade(req.Grade)
	points, err := DerivePoints(grade)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGrade(ctx, id, grade, points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign grade")
	}

	s.gpa.ScheduleRecalc(ctx, current.StudentID)
	s.logger.Sugar().Infow("grade assigned", "enrollment_id", id, "grade", grade, "actor", actor.UserID)
	return s.detail(ctx, id)
}

// Get returns one enrollment. Staff see any row; a student only their own.
func (s *EnrollmentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.EnrollmentDetail, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor.Role, models.ActionViewAny); err != nil {
		owner, err := s.students.FindByID(ctx, detail.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment owner")
		}
		if err := s.access.AuthorizeObject(actor.Role, actor.UserID, models.ActionViewOwn, owner.UserID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// List returns enrollments visible to the caller. Students are scoped to
// their own profile; a student with no profile sees an empty set.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter, actor *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error) {
	empty, err := s.access.ScopeEnrollments(ctx, actor, &filter)
	if err != nil {
		return nil, nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size}

	if empty {
		return []models.EnrollmentDetail{}, pagination, nil
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	pagination.TotalCount = total
	return enrollments, pagination, nil
}

// Delete removes an enrollment record entirely.
func (s *EnrollmentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.access.Authorize(actor.Role, models.ActionDeleteEnrollment); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.logger.Sugar().Infow("enrollment deleted", "enrollment_id", id, "actor", actor.UserID)
	return nil
}

func (s *EnrollmentService) detail(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}
