package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebox-crm/corebox/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const studentColumns = `id, owner_id, student_name, parent_name, parent_email,
	parent_phone, notes, is_active, created_at, updated_at`

// CreateStudent inserts a directory row.
func (r *Repository) CreateStudent(ctx context.Context, student Student) (*Student, error) {
	query := `
		INSERT INTO students (
			owner_id, student_name, parent_name, parent_email, parent_phone,
			notes, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		student.OwnerID,
		student.StudentName,
		student.ParentName,
		student.ParentEmail,
		student.ParentPhone,
		student.Notes,
		student.IsActive,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// SaveStudent persists edited fields.
func (r *Repository) SaveStudent(ctx context.Context, student *Student) error {
	query := `
		UPDATE students SET
			student_name = $1, parent_name = $2, parent_email = $3,
			parent_phone = $4, notes = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7 AND owner_id = $8
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		student.StudentName,
		student.ParentName,
		student.ParentEmail,
		student.ParentPhone,
		student.Notes,
		student.IsActive,
		student.ID,
		student.OwnerID,
	).Scan(&student.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: student %d", shared.ErrNotFound, student.ID)
	}
	return err
}

// GetStudent returns one owned student.
func (r *Repository) GetStudent(ctx context.Context, ownerID, studentID int64) (*Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND owner_id = $2`

	var student Student
	err := r.pool.QueryRow(ctx, query, studentID, ownerID).Scan(
		&student.ID, &student.OwnerID, &student.StudentName, &student.ParentName,
		&student.ParentEmail, &student.ParentPhone, &student.Notes,
		&student.IsActive, &student.CreatedAt, &student.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: student %d", shared.ErrNotFound, studentID)
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// ListStudents returns the owner's students sorted by name.
func (r *Repository) ListStudents(ctx context.Context, ownerID int64, activeOnly bool) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE owner_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY student_name, id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var student Student
		err := rows.Scan(
			&student.ID, &student.OwnerID, &student.StudentName, &student.ParentName,
			&student.ParentEmail, &student.ParentPhone, &student.Notes,
			&student.IsActive, &student.CreatedAt, &student.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

// StudentExists reports directory membership without loading the row.
func (r *Repository) StudentExists(ctx context.Context, ownerID, studentID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND owner_id = $2)`,
		studentID, ownerID,
	).Scan(&exists)
	return exists, err
}
