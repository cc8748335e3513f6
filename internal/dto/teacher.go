package dto

// CreateTeacherRequest defines the payload for creating a teacher profile.
type CreateTeacherRequest struct {
	UserID          string  `json:"user_id" validate:"required,uuid4"`
	TeacherID       string  `json:"teacher_id" validate:"required,max=20"`
	Department      string  `json:"department" validate:"required,max=100"`
	Specialization  *string `json:"specialization,omitempty"`
	Qualification   *string `json:"qualification,omitempty"`
	ExperienceYears int     `json:"experience_years" validate:"min=0,max=60"`
	OfficeRoom      *string `json:"office_room,omitempty"`
}

// UpdateTeacherRequest defines the payload for partially updating a teacher.
type UpdateTeacherRequest struct {
	Department      *string `json:"department,omitempty" validate:"omitempty,max=100"`
	Specialization  *string `json:"specialization,omitempty"`
	Qualification   *string `json:"qualification,omitempty"`
	ExperienceYears *int    `json:"experience_years,omitempty" validate:"omitempty,min=0,max=60"`
	OfficeRoom      *string `json:"office_room,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}
