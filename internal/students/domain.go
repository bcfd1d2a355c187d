// Package students is the directory of tutored students and their parent
// contacts. Billing and reporting resolve student identity here.
package students

import "time"

// Student is one tutored student owned by a tutor account.
type Student struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"-"`
	StudentName string    `json:"student_name"`
	ParentName  string    `json:"parent_name"`
	ParentEmail string    `json:"parent_email,omitempty"`
	ParentPhone string    `json:"parent_phone,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateStudentInput captures a new directory entry.
type CreateStudentInput struct {
	StudentName string `json:"student_name" validate:"required,min=1,max=200"`
	ParentName  string `json:"parent_name" validate:"max=200"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone string `json:"parent_phone" validate:"max=50"`
	Notes       string `json:"notes"`
}

// UpdateStudentInput carries partial edits; nil fields are untouched.
type UpdateStudentInput struct {
	StudentName *string `json:"student_name" validate:"omitempty,min=1,max=200"`
	ParentName  *string `json:"parent_name" validate:"omitempty,max=200"`
	ParentEmail *string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone *string `json:"parent_phone" validate:"omitempty,max=50"`
	Notes       *string `json:"notes"`
	IsActive    *bool   `json:"is_active"`
}
