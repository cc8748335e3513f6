package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
	"github.com/noah-isme/school-records-api/pkg/jobs"
)

// gradePoints is the fixed letter-grade scale. I and W carry no points and
// are deliberately absent; they leave grade_points unset.
var gradePoints = map[models.Grade]float64{
	models.GradeAPlus:  4.00,
	models.GradeA:      4.00,
	models.GradeAMinus: 3.70,
	models.GradeBPlus:  3.30,
	models.GradeB:      3.00,
	models.GradeBMinus: 2.70,
	models.GradeCPlus:  2.30,
	models.GradeC:      2.00,
	models.GradeCMinus: 1.70,
	models.GradeDPlus:  1.30,
	models.GradeD:      1.00,
	models.GradeF:      0.00,
}

// DerivePoints maps a letter grade to its numeric points. I and W yield a nil
// pointer: they are valid grades with no numeric value. Any letter outside
// the fixed scale is a validation error.
func DerivePoints(grade models.Grade) (*float64, error) {
	switch grade {
	case models.GradeIncomplete, models.GradeWithdrawn:
		return nil, nil
	}
	points, ok := gradePoints[grade]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %q", grade))
	}
	p := points
	return &p, nil
}

type gradedEnrollmentLister interface {
	ListGradedByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type studentGPAWriter interface {
	UpdateGPA(ctx context.Context, id string, gpa float64) error
}

// GradeService recomputes student GPAs from graded enrollments. Recalculation
// runs on a background queue so grading requests stay fast.
type GradeService struct {
	enrollments gradedEnrollmentLister
	students    studentGPAWriter
	logger      *zap.Logger
	queue       *jobs.Queue
}

// NewGradeService constructs a GradeService.
func NewGradeService(enrollments gradedEnrollmentLister, students studentGPAWriter, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{enrollments: enrollments, students: students, logger: logger}
}

// AttachQueue wires the background queue the service enqueues recalcs onto.
func (s *GradeService) AttachQueue(q *jobs.Queue) {
	s.queue = q
}

// RecalculateGPA recomputes and persists a student's credit-weighted GPA.
// Enrollments graded I or W contribute neither points nor credits.
func (s *GradeService) RecalculateGPA(ctx context.Context, studentID string) error {
	graded, err := s.enrollments.ListGradedByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("list graded enrollments: %w", err)
	}

	var totalPoints, totalCredits float64
	for _, e := range graded {
		if e.GradePoints == nil {
			continue
		}
		totalPoints += *e.GradePoints * float64(e.Credits)
		totalCredits += float64(e.Credits)
	}

	gpa := 0.0
	if totalCredits > 0 {
		gpa = math.Round(totalPoints/totalCredits*100) / 100
	}
	if err := s.students.UpdateGPA(ctx, studentID, gpa); err != nil {
		return fmt.Errorf("update gpa: %w", err)
	}
	s.logger.Sugar().Debugw("gpa recalculated", "student_id", studentID, "gpa", gpa)
	return nil
}

// HandleJob is the queue handler for GPA recalculation jobs.
func (s *GradeService) HandleJob(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok || studentID == "" {
		s.logger.Sugar().Warnw("discarding malformed gpa job", "job_id", job.ID)
		return nil
	}
	return s.RecalculateGPA(ctx, studentID)
}

// ScheduleRecalc enqueues a recalculation for the given student. When no
// queue is attached the recalc runs inline so grades never go stale.
func (s *GradeService) ScheduleRecalc(ctx context.Context, studentID string) {
	if s.queue == nil {
		if err := s.RecalculateGPA(ctx, studentID); err != nil {
			s.logger.Sugar().Errorw("inline gpa recalc failed", "student_id", studentID, "error", err)
		}
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: "gpa_recalc", Payload: studentID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue gpa recalc", "student_id", studentID, "error", err)
	}
}
