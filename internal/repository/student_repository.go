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

// ErrDuplicateStudent signals a clash on student_id or on the owning user.
var ErrDuplicateStudent = errors.New("student profile already exists")

const studentColumns = `s.id, s.user_id, s.student_id, s.date_of_birth, s.gender, s.grade_level, s.address, s.emergency_name, s.emergency_phone, s.emergency_relation, s.gpa, s.active, s.created_at, s.updated_at`

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student profile with user context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.email, u.first_name, u.last_name
        FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, studentColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student profile owned by a user, if any.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.email, u.first_name, u.last_name
        FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1`, studentColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns student profiles filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}

	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.student_id) LIKE $%d OR LOWER(u.first_name || ' ' || u.last_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":  "s.created_at",
		"student_id":  "s.student_id",
		"gpa":         "s.gpa",
		"grade_level": "s.grade_level",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s, u.email, u.first_name, u.last_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentColumns, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Create persists a new student profile.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, user_id, student_id, date_of_birth, gender, grade_level, address, emergency_name, emergency_phone, emergency_relation, gpa, active, created_at, updated_at)
VALUES (:id, :user_id, :student_id, :date_of_birth, :gender, :grade_level, :address, :emergency_name, :emergency_phone, :emergency_relation, :gpa, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateStudent
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update updates mutable fields of a student profile.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET date_of_birth = :date_of_birth, gender = :gender, grade_level = :grade_level, address = :address, emergency_name = :emergency_name, emergency_phone = :emergency_phone, emergency_relation = :emergency_relation, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateGPA persists a recomputed grade-point average.
func (r *StudentRepository) UpdateGPA(ctx context.Context, id string, gpa float64) error {
	const query = `UPDATE students SET gpa = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, gpa, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student gpa: %w", err)
	}
	return nil
}

// Delete removes a student profile; enrollments cascade at the storage level.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
