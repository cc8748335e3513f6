package models

import "time"

// Student represents a learner profile owned by exactly one user.
type Student struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	StudentID         string    `db:"student_id" json:"student_id"`
	DateOfBirth       time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender            string    `db:"gender" json:"gender"`
	GradeLevel        string    `db:"grade_level" json:"grade_level"`
	Address           *string   `db:"address" json:"address,omitempty"`
	EmergencyName     string    `db:"emergency_name" json:"emergency_name"`
	EmergencyPhone    string    `db:"emergency_phone" json:"emergency_phone"`
	EmergencyRelation string    `db:"emergency_relation" json:"emergency_relation"`
	GPA               float64   `db:"gpa" json:"gpa"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the profile with its owning user.
type StudentDetail struct {
	Student
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	GradeLevel string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
