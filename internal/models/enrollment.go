package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. DROPPED and COMPLETED are terminal.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Valid reports whether the status belongs to the closed status set.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusDropped, EnrollmentStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusDropped || s == EnrollmentStatusCompleted
}

// Grade is a letter grade on the fixed 14-value scale.
type Grade string

const (
	GradeAPlus      Grade = "A+"
	GradeA          Grade = "A"
	GradeAMinus     Grade = "A-"
	GradeBPlus      Grade = "B+"
	GradeB          Grade = "B"
	GradeBMinus     Grade = "B-"
	GradeCPlus      Grade = "C+"
	GradeC          Grade = "C"
	GradeCMinus     Grade = "C-"
	GradeDPlus      Grade = "D+"
	GradeD          Grade = "D"
	GradeF          Grade = "F"
	GradeIncomplete Grade = "I"
	GradeWithdrawn  Grade = "W"
)

// Enrollment links one student profile to one course. The (student_id,
// course_id) pair is unique for the lifetime of the relationship.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	CourseID       string           `db:"course_id" json:"course_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	Grade          *Grade           `db:"grade" json:"grade,omitempty"`
	GradePoints    *float64         `db:"grade_points" json:"grade_points,omitempty"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	Credits       int    `db:"credits" json:"credits"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
