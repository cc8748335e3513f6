package models

import "time"

// CourseStatus represents the lifecycle state of a course.
type CourseStatus string

const (
	CourseStatusActive    CourseStatus = "ACTIVE"
	CourseStatusCompleted CourseStatus = "COMPLETED"
	CourseStatusCancelled CourseStatus = "CANCELLED"
)

// Course represents an offered course. The (course_code, academic_year,
// semester) triple is unique.
type Course struct {
	ID           string       `db:"id" json:"id"`
	CourseCode   string       `db:"course_code" json:"course_code"`
	CourseName   string       `db:"course_name" json:"course_name"`
	Description  *string      `db:"description" json:"description,omitempty"`
	TeacherID    *string      `db:"teacher_id" json:"teacher_id,omitempty"`
	Credits      int          `db:"credits" json:"credits"`
	Semester     string       `db:"semester" json:"semester"`
	AcademicYear string       `db:"academic_year" json:"academic_year"`
	Schedule     *string      `db:"schedule" json:"schedule,omitempty"`
	Room         *string      `db:"room" json:"room,omitempty"`
	MaxStudents  int          `db:"max_students" json:"max_students"`
	Status       CourseStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail extends Course with live roster information. EnrolledCount is
// always computed from ENROLLED rows, never stored.
type CourseDetail struct {
	Course
	TeacherName   *string `db:"teacher_name" json:"teacher_name,omitempty"`
	EnrolledCount int     `db:"enrolled_count" json:"enrolled_count"`
}

// IsFull reports whether the course roster is at capacity.
func (c CourseDetail) IsFull() bool {
	return c.EnrolledCount >= c.MaxStudents
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	Semester     string
	AcademicYear string
	Status       CourseStatus
	TeacherID    string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
