package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

// StudentListing declares how students are searched and sorted. The
// department field sorts by the joined department name.
var StudentListing = listquery.Definition{
	SearchColumns: []string{"s.name", "s.email"},
	Sortable: map[string]string{
		"name":       "s.name",
		"email":      "s.email",
		"created_at": "s.created_at",
		"gender":     "s.gender",
		"department": "d.name",
	},
	DefaultOrder: []string{"s.created_at DESC", "s.id DESC"},
	TieBreaker:   "s.id",
	PerPage:      listquery.DefaultPerPage,
}

func selectStudents() sq.SelectBuilder {
	return psql.Select(
		"s.id", "s.name", "s.email", "s.phone", "s.address", "s.gender", "s.department_id",
		"s.created_at", "s.updated_at", "d.name AS department_name",
	).
		From("students s").
		LeftJoin("departments d ON d.id = s.department_id")
}

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns one page of students joined with their department name,
// plus the total number of matching students.
func (r *StudentRepository) List(ctx context.Context, q listquery.Query) ([]models.StudentRecord, int, error) {
	query, args, err := q.Apply(selectStudents()).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build student list: %w", err)
	}
	students := []models.StudentRecord{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery, countArgs, err := q.Filter(psql.Select("COUNT(*)").From("students s")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build student count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student matching the query's search, in its order,
// without a page window.
func (r *StudentRepository) ListAll(ctx context.Context, q listquery.Query) ([]models.StudentRecord, error) {
	query, args, err := q.Order(q.Filter(selectStudents())).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build student export: %w", err)
	}
	students := []models.StudentRecord{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("export students: %w", err)
	}
	return students, nil
}

// Recent returns the newest students.
func (r *StudentRepository) Recent(ctx context.Context, limit int) ([]models.StudentRecord, error) {
	query, args, err := selectStudents().OrderBy("s.created_at DESC", "s.id DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent students: %w", err)
	}
	students := []models.StudentRecord{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("recent students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student joined with its department name.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentRecord, error) {
	query, args, err := selectStudents().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find student: %w", err)
	}
	var student models.StudentRecord
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsByEmail checks if a student uses the email, optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE email = $1"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// Create inserts a new student. The unique email constraint surfaces as
// ErrDuplicateEmail and a missing department as ErrUnknownDepartment.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, email, phone, address, gender, department_id, created_at, updated_at)
        VALUES (:id, :name, :email, :phone, :address, :gender, :department_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return translateStudentWrite("create student", err)
	}
	return nil
}

// Update modifies an existing student. It returns sql.ErrNoRows when the
// student does not exist.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, phone = :phone, address = :address, gender = :gender, department_id = :department_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return translateStudentWrite("update student", err)
	}
	return requireAffected(res, "update student")
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res, "delete student")
}
