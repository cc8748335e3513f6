package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/pkg/jobs"
)

func TestDerivePoints(t *testing.T) {
	cases := []struct {
		grade  models.Grade
		points float64
	}{
		{models.GradeAPlus, 4.00},
		{models.GradeA, 4.00},
		{models.GradeAMinus, 3.70},
		{models.GradeBPlus, 3.30},
		{models.GradeB, 3.00},
		{models.GradeBMinus, 2.70},
		{models.GradeCPlus, 2.30},
		{models.GradeC, 2.00},
		{models.GradeCMinus, 1.70},
		{models.GradeDPlus, 1.30},
		{models.GradeD, 1.00},
		{models.GradeF, 0.00},
	}
	for _, tc := range cases {
		t.Run(string(tc.grade), func(t *testing.T) {
			points, err := DerivePoints(tc.grade)
			require.NoError(t, err)
			require.NotNil(t, points)
			assert.InDelta(t, tc.points, *points, 0.001)
		})
	}
}

func TestDerivePointsIncompleteAndWithdrawn(t *testing.T) {
	for _, grade := range []models.Grade{models.GradeIncomplete, models.GradeWithdrawn} {
		points, err := DerivePoints(grade)
		require.NoError(t, err)
		assert.Nil(t, points)
	}
}

func TestDerivePointsUnknownGrade(t *testing.T) {
	_, err := DerivePoints(models.Grade("Z"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown grade")
}

type gradedListerStub struct {
	rows []models.EnrollmentDetail
	err  error
}

func (s gradedListerStub) ListGradedByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return s.rows, s.err
}

type gpaWriterStub struct {
	studentID string
	gpa       float64
	calls     int
	err       error
}

func (s *gpaWriterStub) UpdateGPA(ctx context.Context, id string, gpa float64) error {
	s.studentID = id
	s.gpa = gpa
	s.calls++
	return s.err
}

func floatPtr(v float64) *float64 { return &v }

func gradePtr(g models.Grade) *models.Grade { return &g }

func TestRecalculateGPAWeightsByCredits(t *testing.T) {
	rows := []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{Grade: gradePtr(models.GradeA), GradePoints: floatPtr(4.0)}, Credits: 3},
		{Enrollment: models.Enrollment{Grade: gradePtr(models.GradeB), GradePoints: floatPtr(3.0)}, Credits: 4},
		// Withdrawn: no points, must not dilute the average.
		{Enrollment: models.Enrollment{Grade: gradePtr(models.GradeWithdrawn)}, Credits: 3},
	}
	writer := &gpaWriterStub{}
	svc := NewGradeService(gradedListerStub{rows: rows}, writer, zap.NewNop())

	require.NoError(t, svc.RecalculateGPA(context.Background(), "student-1"))
	assert.Equal(t, 1, writer.calls)
	assert.Equal(t, "student-1", writer.studentID)
	// (4*3 + 3*4) / 7 = 3.43 rounded to two decimals.
	assert.InDelta(t, 3.43, writer.gpa, 0.001)
}

func TestRecalculateGPANoGradedCourses(t *testing.T) {
	writer := &gpaWriterStub{}
	svc := NewGradeService(gradedListerStub{}, writer, zap.NewNop())

	require.NoError(t, svc.RecalculateGPA(context.Background(), "student-1"))
	assert.Equal(t, 0.0, writer.gpa)
}

func TestHandleJobDiscardsMalformedPayload(t *testing.T) {
	writer := &gpaWriterStub{}
	svc := NewGradeService(gradedListerStub{}, writer, zap.NewNop())

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "j1", Payload: 42}))
	assert.Equal(t, 0, writer.calls)
}

func TestScheduleRecalcRunsInlineWithoutQueue(t *testing.T) {
	rows := []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{GradePoints: floatPtr(2.0)}, Credits: 3},
	}
	writer := &gpaWriterStub{}
	svc := NewGradeService(gradedListerStub{rows: rows}, writer, zap.NewNop())

	svc.ScheduleRecalc(context.Background(), "student-1")
	assert.Equal(t, 1, writer.calls)
	assert.InDelta(t, 2.0, writer.gpa, 0.001)
}
