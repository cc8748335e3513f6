package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/internal/repository"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
	"github.com/noah-isme/school-records-api/pkg/export"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentAccess interface {
	Authorize(role models.UserRole, action models.Action) error
	AuthorizeObject(role models.UserRole, userID string, action models.Action, ownerUserID string) error
}

// TranscriptFile is a rendered transcript ready to stream to a client.
type TranscriptFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// StudentService manages student profiles and transcript exports.
type StudentService struct {
	repo        studentRepository
	enrollments gradedEnrollmentLister
	access      studentAccess
	dashboard   dashboardInvalidator
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, enrollments gradedEnrollmentLister, access studentAccess, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		enrollments: enrollments,
		access:      access,
		dashboard:   dashboard,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validate:    validate,
		logger:      logger,
	}
}

// Get returns one student profile. Staff see any profile; a student only
// their own.
func (s *StudentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.StudentDetail, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor.Role, models.ActionViewAny); err != nil {
		if err := s.access.AuthorizeObject(actor.Role, actor.UserID, models.ActionViewOwn, student.UserID); err != nil {
			return nil, err
		}
	}
	return student, nil
}

// GetOwn returns the caller's own student profile.
func (s *StudentService) GetOwn(ctx context.Context, actor *models.JWTClaims) (*models.StudentDetail, error) {
	student, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns student profiles. Staff only.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter, actor *models.JWTClaims) ([]models.StudentDetail, *models.Pagination, error) {
	if err := s.access.Authorize(actor.Role, models.ActionViewAny); err != nil {
		return nil, nil, err
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a student profile for an existing user account.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest, actor *models.JWTClaims) (*models.StudentDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionCreateProfile); err != nil {
		return nil, err
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_of_birth must be YYYY-MM-DD")
	}

	student := &models.Student{
		UserID:            req.UserID,
		StudentID:         req.StudentID,
		DateOfBirth:       dob,
		Gender:            req.Gender,
		GradeLevel:        req.GradeLevel,
		Address:           req.Address,
		EmergencyName:     req.EmergencyName,
		EmergencyPhone:    req.EmergencyPhone,
		EmergencyRelation: req.EmergencyRelation,
		Active:            true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicateStudent) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student profile already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("student created", "student_id", student.ID, "student_number", student.StudentID, "actor", actor.UserID)
	return s.find(ctx, student.ID)
}

// Update modifies a student profile.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest, actor *models.JWTClaims) (*models.StudentDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.access.Authorize(actor.Role, models.ActionEditProfile); err != nil {
		return nil, err
	}

	detail, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	student := detail.Student

	if req.GradeLevel != nil {
		student.GradeLevel = *req.GradeLevel
	}
	if req.Address != nil {
		student.Address = req.Address
	}
	if req.EmergencyName != nil {
		student.EmergencyName = *req.EmergencyName
	}
	if req.EmergencyPhone != nil {
		student.EmergencyPhone = *req.EmergencyPhone
	}
	if req.EmergencyRelation != nil {
		student.EmergencyRelation = *req.EmergencyRelation
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("student updated", "student_id", id, "actor", actor.UserID)
	return s.find(ctx, id)
}

// Delete removes a student profile.
func (s *StudentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.access.Authorize(actor.Role, models.ActionDeleteProfile); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.dashboard.Invalidate(ctx)
	s.logger.Sugar().Infow("student deleted", "student_id", id, "actor", actor.UserID)
	return nil
}

// Transcript renders a student's graded course history as CSV or PDF. The
// same visibility rule as Get applies.
func (s *StudentService) Transcript(ctx context.Context, id, format string, actor *models.JWTClaims) (*TranscriptFile, error) {
	student, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	graded, err := s.enrollments.ListGradedByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript rows")
	}

	data := export.Dataset{Headers: []string{"Course Code", "Course", "Credits", "Grade", "Points", "Status"}}
	for _, e := range graded {
		points := ""
		if e.GradePoints != nil {
			points = fmt.Sprintf("%.2f", *e.GradePoints)
		}
		grade := ""
		if e.Grade != nil {
			grade = string(*e.Grade)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Course Code": e.CourseCode,
			"Course":      e.CourseName,
			"Credits":     fmt.Sprintf("%d", e.Credits),
			"Grade":       grade,
			"Points":      points,
			"Status":      string(e.Status),
		})
	}

	base := fmt.Sprintf("transcript_%s", student.StudentID)
	switch strings.ToLower(format) {
	case "", "csv":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return &TranscriptFile{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	case "pdf":
		title := fmt.Sprintf("Transcript - %s %s (GPA %.2f)", student.FirstName, student.LastName, student.GPA)
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return &TranscriptFile{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}

func (s *StudentService) find(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
