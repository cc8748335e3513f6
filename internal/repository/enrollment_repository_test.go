package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-records-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() { _ = sqlxDB.Close() }
}

const (
	lockCourseQuery       = `SELECT status, max_students FROM courses WHERE id = $1 FOR UPDATE`
	duplicateCheckQuery   = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	countEnrolledQuery    = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	insertEnrollmentQuery = `INSERT INTO enrollments`
)

func activeCourseRows(maxStudents int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"status", "max_students"}).AddRow("ACTIVE", maxStudents)
}

func TestCreateEnrolledHappyPath(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseQuery)).
		WithArgs("course-1").
		WillReturnRows(activeCourseRows(30))
	mock.ExpectQuery(regexp.QuoteMeta(duplicateCheckQuery)).
		WithArgs("student-1", "course-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(countEnrolledQuery)).
		WithArgs("course-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(insertEnrollmentQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "student-1", CourseID: "course-1"}
	err := repo.CreateEnrolled(context.Background(), enrollment)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.False(t, enrollment.EnrollmentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrolledDuplicateBeforeCapacity(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// The duplicate check fires before the capacity count, so a re-enrolling
	// student on a full course still gets the duplicate error.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseQuery)).
		WithArgs("course-1").
		WillReturnRows(activeCourseRows(1))
	mock.ExpectQuery(regexp.QuoteMeta(duplicateCheckQuery)).
		WithArgs("student-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateEnrolled(context.Background(), &models.Enrollment{StudentID: "student-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrolledCourseFull(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseQuery)).
		WithArgs("course-1").
		WillReturnRows(activeCourseRows(25))
	mock.ExpectQuery(regexp.QuoteMeta(duplicateCheckQuery)).
		WithArgs("student-1", "course-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(countEnrolledQuery)).
		WithArgs("course-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectRollback()

	err := repo.CreateEnrolled(context.Background(), &models.Enrollment{StudentID: "student-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, ErrCourseFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrolledCourseNotActive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseQuery)).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "max_students"}).AddRow("COMPLETED", 30))
	mock.ExpectRollback()

	err := repo.CreateEnrolled(context.Background(), &models.Enrollment{StudentID: "student-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, ErrCourseNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrolledCourseMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseQuery)).
		WithArgs("course-x").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CreateEnrolled(context.Background(), &models.Enrollment{StudentID: "student-1", CourseID: "course-x"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusGradeCompareAndSet(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	grade := models.GradeA
	points := 4.0
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET status = $3, grade = $4, grade_points = $5, updated_at = $6 WHERE id = $1 AND status = $2`)).
		WithArgs("enr-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted, grade, &points, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatusGrade(context.Background(), "enr-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted, &grade, &points)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusGradeStaleRow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`)).
		WithArgs("enr-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatusGrade(context.Background(), "enr-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, nil, nil)
	assert.ErrorIs(t, err, ErrStaleRow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGradeMissingRow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	points := 3.3
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET grade = $2, grade_points = $3, updated_at = $4 WHERE id = $1`)).
		WithArgs("enr-x", models.GradeBPlus, &points, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrade(context.Background(), "enr-x", models.GradeBPlus, &points)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM enrollments WHERE id = $1`)).
		WithArgs("enr-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "enr-x")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	columns := []string{"id", "student_id", "course_id", "status", "grade", "grade_points", "enrollment_date", "updated_at",
		"student_number", "student_name", "course_code", "course_name", "credits"}
	mock.ExpectQuery(`SELECT e.id, e.student_id(?s:.*)ORDER BY e.enrollment_date DESC, e.seq`).
		WithArgs("student-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("student-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rows, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		StudentID: "student-1",
		Status:    models.EnrollmentStatusEnrolled,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
