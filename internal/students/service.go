package students

import (
	"context"
	"fmt"

	"github.com/corebox-crm/corebox/internal/shared"
)

// RepositoryPort defines data access methods for the student directory.
type RepositoryPort interface {
	CreateStudent(ctx context.Context, student Student) (*Student, error)
	SaveStudent(ctx context.Context, student *Student) error
	GetStudent(ctx context.Context, ownerID, studentID int64) (*Student, error)
	ListStudents(ctx context.Context, ownerID int64, activeOnly bool) ([]Student, error)
	StudentExists(ctx context.Context, ownerID, studentID int64) (bool, error)
}

// Service handles student directory business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create adds a student to the directory.
func (s *Service) Create(ctx context.Context, ownerID int64, input CreateStudentInput) (*Student, error) {
	if input.StudentName == "" {
		return nil, fmt.Errorf("%w: student name required", shared.ErrValidation)
	}
	return s.repo.CreateStudent(ctx, Student{
		OwnerID:     ownerID,
		StudentName: input.StudentName,
		ParentName:  input.ParentName,
		ParentEmail: input.ParentEmail,
		ParentPhone: input.ParentPhone,
		Notes:       input.Notes,
		IsActive:    true,
	})
}

// Get returns one owned student.
func (s *Service) Get(ctx context.Context, ownerID, studentID int64) (*Student, error) {
	return s.repo.GetStudent(ctx, ownerID, studentID)
}

// Update applies partial edits.
func (s *Service) Update(ctx context.Context, ownerID, studentID int64, input UpdateStudentInput) (*Student, error) {
	student, err := s.repo.GetStudent(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}
	if input.StudentName != nil {
		if *input.StudentName == "" {
			return nil, fmt.Errorf("%w: student name required", shared.ErrValidation)
		}
		student.StudentName = *input.StudentName
	}
	if input.ParentName != nil {
		student.ParentName = *input.ParentName
	}
	if input.ParentEmail != nil {
		student.ParentEmail = *input.ParentEmail
	}
	if input.ParentPhone != nil {
		student.ParentPhone = *input.ParentPhone
	}
	if input.Notes != nil {
		student.Notes = *input.Notes
	}
	if input.IsActive != nil {
		student.IsActive = *input.IsActive
	}
	if err := s.repo.SaveStudent(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// List returns the owner's students.
func (s *Service) List(ctx context.Context, ownerID int64, activeOnly bool) ([]Student, error) {
	return s.repo.ListStudents(ctx, ownerID, activeOnly)
}

// StudentExists reports whether the owner has this student. Satisfies the
// directory port the billing and reporting services depend on.
func (s *Service) StudentExists(ctx context.Context, ownerID, studentID int64) (bool, error) {
	return s.repo.StudentExists(ctx, ownerID, studentID)
}
