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
	"github.com/noah-isme/vtc-admin-api/pkg/database"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

const departmentColumns = `d.id, d.name, d.description, d.duration, d.status, d.created_at, d.updated_at,
        (SELECT COUNT(*) FROM students s WHERE s.department_id = d.id) AS student_count`

// DepartmentListing declares how departments are searched and sorted.
var DepartmentListing = listquery.Definition{
	SearchColumns: []string{"d.name"},
	Sortable: map[string]string{
		"name":       "d.name",
		"duration":   "d.duration",
		"status":     "d.status",
		"created_at": "d.created_at",
	},
	DefaultOrder: []string{"d.created_at DESC", "d.id DESC"},
	TieBreaker:   "d.id",
	PerPage:      listquery.DefaultPerPage,
}

// DepartmentRepository manages persistence for departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs a DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns one page of departments with live student counts, plus the
// total number of matching departments.
func (r *DepartmentRepository) List(ctx context.Context, q listquery.Query) ([]models.DepartmentSummary, int, error) {
	query, args, err := q.Apply(psql.Select(departmentColumns).From("departments d")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build department list: %w", err)
	}
	departments := []models.DepartmentSummary{}
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	countQuery, countArgs, err := q.Filter(psql.Select("COUNT(*)").From("departments d")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build department count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return departments, total, nil
}

// FindByID fetches a department with its student count.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.DepartmentSummary, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments d WHERE d.id = $1`
	var department models.DepartmentSummary
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &department, nil
}

// Exists reports whether a department with the id exists.
func (r *DepartmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM departments WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check department: %w", err)
	}
	return exists, nil
}

// ListActive returns active departments ordered by name.
func (r *DepartmentRepository) ListActive(ctx context.Context) ([]models.Department, error) {
	query, args, err := psql.Select("id", "name", "description", "duration", "status", "created_at", "updated_at").
		From("departments").
		Where(sq.Eq{"status": models.DepartmentActive}).
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active departments: %w", err)
	}
	departments := []models.Department{}
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, fmt.Errorf("list active departments: %w", err)
	}
	return departments, nil
}

// CountStudents returns how many students reference the department.
func (r *DepartmentRepository) CountStudents(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE department_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count department students: %w", err)
	}
	return count, nil
}

// Create inserts a new department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if department.CreatedAt.IsZero() {
		department.CreatedAt = now
	}
	department.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, description, duration, status, created_at, updated_at)
        VALUES (:id, :name, :description, :duration, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update overwrites the mutable department fields. It returns sql.ErrNoRows
// when the department does not exist.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, description = :description, duration = :duration, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, department)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return requireAffected(res, "update department")
}

// Delete removes a department. Departments still referenced by students are
// rejected by the foreign key and reported as ErrDepartmentInUse.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err, constraintStudentDepartment) {
			return ErrDepartmentInUse
		}
		return fmt.Errorf("delete department: %w", err)
	}
	return requireAffected(res, "delete department")
}
