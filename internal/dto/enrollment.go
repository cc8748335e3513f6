package dto

// EnrollStudentRequest defines the payload for enrolling a student.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	CourseID  string `json:"course_id" validate:"required,uuid4"`
}

// UpdateEnrollmentStatusRequest transitions an enrollment out of ENROLLED.
// Grade may accompany a COMPLETED transition.
type UpdateEnrollmentStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=DROPPED COMPLETED"`
	Grade  *string `json:"grade,omitempty"`
}

// AssignGradeRequest records a letter grade on an enrollment.
type AssignGradeRequest struct {
	Grade string `json:"grade" validate:"required"`
}
