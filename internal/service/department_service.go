package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/repository"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
	"github.com/noah-isme/vtc-admin-api/pkg/validation"
)

type departmentRepository interface {
	List(ctx context.Context, q listquery.Query) ([]models.DepartmentSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.DepartmentSummary, error)
	ListActive(ctx context.Context) ([]models.Department, error)
	CountStudents(ctx context.Context, id string) (int, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string)
}

// DepartmentService handles department use-cases.
type DepartmentService struct {
	repo      departmentRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs the department service. cache may be nil.
func NewDepartmentService(repo departmentRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns one page of departments with student counts.
func (s *DepartmentService) List(ctx context.Context, params listquery.Params) (listquery.Page[models.DepartmentSummary], error) {
	q := repository.DepartmentListing.Prepare(params)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return listquery.Page[models.DepartmentSummary]{}, internalError(err, "failed to list departments")
	}
	return listquery.NewPage(q, items, total), nil
}

// Active lists departments open for registration.
func (s *DepartmentService) Active(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list departments")
	}
	return departments, nil
}

// Get returns a department with its student count.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.DepartmentSummary, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
	}
	department, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, internalError(err, "failed to load department")
	}
	return department, nil
}

// Create validates and stores a new department.
func (s *DepartmentService) Create(ctx context.Context, input models.DepartmentInput) (*models.Department, error) {
	input = normaliseDepartment(input)
	if err := s.validate(input); err != nil {
		return nil, err
	}
	department := &models.Department{
		Name:        input.Name,
		Description: input.Description,
		Duration:    input.Duration,
		Status:      input.Status,
	}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, internalError(err, "failed to create department")
	}
	s.invalidate(ctx)
	return department, nil
}

// Update overwrites a department's fields.
func (s *DepartmentService) Update(ctx context.Context, id string, input models.DepartmentInput) (*models.Department, error) {
	input = normaliseDepartment(input)
	if err := s.validate(input); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	department := existing.Department
	department.Name = input.Name
	department.Description = input.Description
	department.Duration = input.Duration
	department.Status = input.Status
	if err := s.repo.Update(ctx, &department); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, internalError(err, "failed to update department")
	}
	s.invalidate(ctx)
	return &department, nil
}

// Delete removes a department. Departments that still have students are
// refused with a conflict.
func (s *DepartmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return internalError(err, "failed to count department students")
	}
	if count > 0 {
		return inUse(count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrDepartmentInUse):
			return inUse(0)
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return internalError(err, "failed to delete department")
	}
	s.invalidate(ctx)
	return nil
}

func (s *DepartmentService) validate(input models.DepartmentInput) error {
	fields, err := fieldErrors(s.validator, input)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return appErrors.Validation(fields)
	}
	return nil
}

func (s *DepartmentService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, DashboardCachePattern)
	}
}

func inUse(count int) error {
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Department still has %d student(s) and cannot be deleted.", count))
	}
	return appErrors.Clone(appErrors.ErrConflict, "Department still has students and cannot be deleted.")
}

func normaliseDepartment(in models.DepartmentInput) models.DepartmentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Duration = strings.TrimSpace(in.Duration)
	in.Status = models.DepartmentStatus(strings.TrimSpace(string(in.Status)))
	return in
}
