package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-records-api/internal/models"
)

// DashboardRepository aggregates headline counts for the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats returns live counts; nothing here is materialised.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students WHERE active = TRUE) AS active_students,
        (SELECT COUNT(*) FROM teachers WHERE active = TRUE) AS active_teachers,
        (SELECT COUNT(*) FROM courses WHERE status = 'ACTIVE') AS active_courses,
        (SELECT COUNT(*) FROM enrollments WHERE status = 'ENROLLED') AS active_enrollments`
	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}
