package models

// DashboardStats aggregates headline counts for the admin dashboard.
type DashboardStats struct {
	ActiveStudents    int `db:"active_students" json:"active_students"`
	ActiveTeachers    int `db:"active_teachers" json:"active_teachers"`
	ActiveCourses     int `db:"active_courses" json:"active_courses"`
	ActiveEnrollments int `db:"active_enrollments" json:"active_enrollments"`
}
