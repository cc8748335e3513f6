package models

import "time"

// Teacher represents an instructor profile owned by exactly one user.
type Teacher struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	Department      string    `db:"department" json:"department"`
	Specialization  *string   `db:"specialization" json:"specialization,omitempty"`
	Qualification   *string   `db:"qualification" json:"qualification,omitempty"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	OfficeRoom      *string   `db:"office_room" json:"office_room,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail joins the profile with its owning user.
type TeacherDetail struct {
	Teacher
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
