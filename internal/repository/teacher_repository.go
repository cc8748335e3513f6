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

// ErrDuplicateTeacher signals a clash on teacher_id or on the owning user.
var ErrDuplicateTeacher = errors.New("teacher profile already exists")

const teacherColumns = `t.id, t.user_id, t.teacher_id, t.department, t.specialization, t.qualification, t.experience_years, t.office_room, t.active, t.created_at, t.updated_at`

// TeacherRepository handles persistence of teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns a teacher profile with user context.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.email, u.first_name, u.last_name
        FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.id = $1`, teacherColumns)
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID returns the teacher profile owned by a user, if any.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.email, u.first_name, u.last_name
        FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.user_id = $1`, teacherColumns)
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// List returns teacher profiles filtered by the provided criteria.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	base := `FROM teachers t JOIN users u ON u.id = t.user_id`
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("t.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("t.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(t.teacher_id) LIKE $%d OR LOWER(u.first_name || ' ' || u.last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "t.created_at",
		"teacher_id": "t.teacher_id",
		"department": "t.department",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "t.created_at"
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
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, teacherColumns, base+clause, orderBy, order, size, offset)

	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// Create persists a new teacher profile.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, user_id, teacher_id, department, specialization, qualification, experience_years, office_room, active, created_at, updated_at)
VALUES (:id, :user_id, :teacher_id, :department, :specialization, :qualification, :experience_years, :office_room, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateTeacher
		}
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update updates mutable fields of a teacher profile.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET department = :department, specialization = :specialization, qualification = :qualification, experience_years = :experience_years, office_room = :office_room, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a teacher profile. Courses keep running with the teacher
// reference cleared at the storage level.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teachers WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
