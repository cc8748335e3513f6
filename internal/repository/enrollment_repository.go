package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-records-api/internal/models"
)

// Sentinel errors surfaced by the roster-critical paths. The service layer
// maps them to the public error taxonomy.
var (
	ErrCourseFull          = errors.New("course full")
	ErrDuplicateEnrollment = errors.New("already enrolled")
	ErrCourseNotActive     = errors.New("course not active")
	ErrStaleRow            = errors.New("row changed concurrently")
)

const pqUniqueViolation = "23505"

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.status, e.grade, e.grade_points, e.enrollment_date, e.updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CreateEnrolled inserts a new ENROLLED row for the (student, course) pair.
// The whole check-then-insert runs in one transaction that locks the course
// row, so the ENROLLED count can never exceed max_students no matter how many
// callers race on the same course. The unique index on (student_id,
// course_id) is the authority for duplicates; a violation at insert time is
// reported as ErrDuplicateEnrollment, never as a generic failure.
func (r *EnrollmentRepository) CreateEnrolled(ctx context.Context, enrollment *models.Enrollment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var course struct {
		Status      models.CourseStatus `db:"status"`
		MaxStudents int                 `db:"max_students"`
	}
	const lockQuery = `SELECT status, max_students FROM courses WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &course, lockQuery, enrollment.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock course row: %w", err)
	}
	if course.Status != models.CourseStatusActive {
		return ErrCourseNotActive
	}

	// Duplicate before capacity: re-enrolling must report "already enrolled"
	// even when the course is full.
	var exists int
	const dupQuery = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	if err = tx.GetContext(ctx, &exists, dupQuery, enrollment.StudentID, enrollment.CourseID); err == nil {
		return ErrDuplicateEnrollment
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("check duplicate enrollment: %w", err)
	}

	var enrolled int
	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	if err = tx.GetContext(ctx, &enrolled, countQuery, enrollment.CourseID, models.EnrollmentStatusEnrolled); err != nil {
		return fmt.Errorf("count enrolled students: %w", err)
	}
	if enrolled >= course.MaxStudents {
		return ErrCourseFull
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.UpdatedAt = now

	const insertQuery = `INSERT INTO enrollments (id, student_id, course_id, status, grade, grade_points, enrollment_date, updated_at)
VALUES (:id, :student_id, :course_id, :status, :grade, :grade_points, :enrollment_date, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			err = ErrDuplicateEnrollment
			return err
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e WHERE e.id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and course context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.student_id AS student_number, u.first_name || ' ' || u.last_name AS student_name,
        c.course_code, c.course_name, c.credits
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN users u ON u.id = s.user_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`, enrollmentColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns enrollments filtered by the provided criteria, newest first
// with the insertion sequence as a stable tie-break.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN users u ON u.id = s.user_id
JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, s.student_id AS student_number, u.first_name || ' ' || u.last_name AS student_name,
        c.course_code, c.course_name, c.credits
        %s ORDER BY e.enrollment_date DESC, e.seq LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// UpdateStatusGrade transitions status and optionally grade in one update.
// The expected previous status acts as a compare-and-set guard so concurrent
// edits of the same row cannot produce a lost update or a transition out of a
// terminal state.
func (r *EnrollmentRepository) UpdateStatusGrade(ctx context.Context, id string, from, to models.EnrollmentStatus, grade *models.Grade, gradePoints *float64) error {
	var (
		res sql.Result
		err error
	)
	if grade != nil {
		const query = `UPDATE enrollments SET status = $3, grade = $4, grade_points = $5, updated_at = $6 WHERE id = $1 AND status = $2`
		res, err = r.db.ExecContext(ctx, query, id, from, to, *grade, gradePoints, time.Now().UTC())
	} else {
		const query = `UPDATE enrollments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
		res, err = r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected == 0 {
		return ErrStaleRow
	}
	return nil
}

// UpdateGrade sets the letter grade and its derived points.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id string, grade models.Grade, gradePoints *float64) error {
	const query = `UPDATE enrollments SET grade = $2, grade_points = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, grade, gradePoints, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an enrollment row.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountEnrolled returns the live count of ENROLLED rows for a course.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return count, nil
}

// ListGradedByStudent returns a student's enrollments that carry a grade,
// with course context, ordered by enrollment date.
func (r *EnrollmentRepository) ListGradedByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.student_id AS student_number, u.first_name || ' ' || u.last_name AS student_name,
        c.course_code, c.course_name, c.credits
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN users u ON u.id = s.user_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.grade IS NOT NULL
        ORDER BY e.enrollment_date DESC, e.seq`, enrollmentColumns)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list graded enrollments: %w", err)
	}
	return enrollments, nil
}
