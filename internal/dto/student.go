package dto

// CreateStudentRequest defines the payload for creating a student profile.
type CreateStudentRequest struct {
	UserID            string  `json:"user_id" validate:"required,uuid4"`
	StudentID         string  `json:"student_id" validate:"required,max=20"`
	DateOfBirth       string  `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender            string  `json:"gender" validate:"required,oneof=M F"`
	GradeLevel        string  `json:"grade_level" validate:"required,max=10"`
	Address           *string `json:"address,omitempty"`
	EmergencyName     string  `json:"emergency_name" validate:"required,max=100"`
	EmergencyPhone    string  `json:"emergency_phone" validate:"required,max=20"`
	EmergencyRelation string  `json:"emergency_relation" validate:"required,max=50"`
}

// UpdateStudentRequest defines the payload for partially updating a student.
type UpdateStudentRequest struct {
	GradeLevel        *string `json:"grade_level,omitempty" validate:"omitempty,max=10"`
	Address           *string `json:"address,omitempty"`
	EmergencyName     *string `json:"emergency_name,omitempty" validate:"omitempty,max=100"`
	EmergencyPhone    *string `json:"emergency_phone,omitempty" validate:"omitempty,max=20"`
	EmergencyRelation *string `json:"emergency_relation,omitempty" validate:"omitempty,max=50"`
	Active            *bool   `json:"active,omitempty"`
}
