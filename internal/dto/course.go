package dto

// CreateCourseRequest defines the payload for creating a course offering.
type CreateCourseRequest struct {
	CourseCode   string  `json:"course_code" validate:"required,max=20"`
	CourseName   string  `json:"course_name" validate:"required,max=200"`
	Description  *string `json:"description,omitempty"`
	TeacherID    *string `json:"teacher_id,omitempty" validate:"omitempty,uuid4"`
	Credits      int     `json:"credits" validate:"required,min=1,max=10"`
	Semester     string  `json:"semester" validate:"required,max=20"`
	AcademicYear string  `json:"academic_year" validate:"required,max=9"`
	Schedule     *string `json:"schedule,omitempty"`
	Room         *string `json:"room,omitempty"`
	MaxStudents  int     `json:"max_students" validate:"required,min=1,max=500"`
}

// UpdateCourseRequest defines the payload for partially updating a course.
type UpdateCourseRequest struct {
	CourseName  *string `json:"course_name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	TeacherID   *string `json:"teacher_id,omitempty" validate:"omitempty,uuid4"`
	Credits     *int    `json:"credits,omitempty" validate:"omitempty,min=1,max=10"`
	Schedule    *string `json:"schedule,omitempty"`
	Room        *string `json:"room,omitempty"`
	MaxStudents *int    `json:"max_students,omitempty" validate:"omitempty,min=1,max=500"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE COMPLETED CANCELLED"`
}
