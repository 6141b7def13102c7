package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/repository"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
	"github.com/noah-isme/vtc-admin-api/pkg/validation"
)

const (
	msgEmailTaken         = "The email has already been taken."
	msgDepartmentNotFound = "The selected department id is invalid."
)

type studentRepository interface {
	List(ctx context.Context, q listquery.Query) ([]models.StudentRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentRecord, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type departmentLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type studentCreatedNotifier interface {
	StudentCreated(ctx context.Context, student models.Student)
}

// StudentService handles staff student CRUD and public registration.
type StudentService struct {
	repo        studentRepository
	departments departmentLookup
	notifier    studentCreatedNotifier
	cache       cacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// StudentServiceParams groups constructor dependencies.
type StudentServiceParams struct {
	Repo        studentRepository
	Departments departmentLookup
	Notifier    studentCreatedNotifier
	Cache       cacheInvalidator
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(params StudentServiceParams) *StudentService {
	validate := params.Validator
	if validate == nil {
		validate = validation.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        params.Repo,
		departments: params.Departments,
		notifier:    params.Notifier,
		cache:       params.Cache,
		validator:   validate,
		logger:      logger,
	}
}

// List returns one page of students with their department.
func (s *StudentService) List(ctx context.Context, params listquery.Params) (listquery.Page[models.StudentView], error) {
	q := repository.StudentListing.Prepare(params)
	records, total, err := s.repo.List(ctx, q)
	if err != nil {
		return listquery.Page[models.StudentView]{}, internalError(err, "failed to list students")
	}
	views := make([]models.StudentView, len(records))
	for i, record := range records {
		views[i] = record.View()
	}
	return listquery.NewPage(q, views, total), nil
}

// Get returns a student with its department.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentView, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	view := record.View()
	return &view, nil
}

// Create stores a student entered by staff and notifies staff users.
func (s *StudentService) Create(ctx context.Context, input models.StudentInput) (*models.StudentView, error) {
	student, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, student), nil
}

// Register stores a student submitted through the public application form.
// Applicants only receive an acknowledgement, so nothing is returned.
func (s *StudentService) Register(ctx context.Context, input models.StudentInput) error {
	_, err := s.create(ctx, input)
	return err
}

// Update overwrites a student's fields. Resubmitting the same payload leaves
// the stored state unchanged.
func (s *StudentService) Update(ctx context.Context, id string, input models.StudentInput) (*models.StudentView, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	input = normaliseStudent(input)
	if err := s.validate(ctx, input, id); err != nil {
		return nil, err
	}

	student := record.Student
	applyStudentInput(&student, input)
	if err := s.repo.Update(ctx, &student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, translateWriteError(err, "failed to update student")
	}
	s.invalidate(ctx)
	return s.reload(ctx, &student), nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return internalError(err, "failed to delete student")
	}
	s.invalidate(ctx)
	return nil
}

func (s *StudentService) create(ctx context.Context, input models.StudentInput) (*models.Student, error) {
	input = normaliseStudent(input)
	if err := s.validate(ctx, input, ""); err != nil {
		return nil, err
	}
	student := &models.Student{}
	applyStudentInput(student, input)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, translateWriteError(err, "failed to create student")
	}
	s.invalidate(ctx)
	if s.notifier != nil {
		s.notifier.StudentCreated(ctx, *student)
	}
	return student, nil
}

// validate collects rule failures together with the email uniqueness and
// department existence checks so callers see every field error at once.
func (s *StudentService) validate(ctx context.Context, input models.StudentInput, excludeID string) error {
	fields, err := fieldErrors(s.validator, input)
	if err != nil {
		return err
	}
	if _, bad := fields["email"]; !bad {
		taken, err := s.repo.ExistsByEmail(ctx, input.Email, excludeID)
		if err != nil {
			return internalError(err, "failed to validate email")
		}
		if taken {
			fields["email"] = msgEmailTaken
		}
	}
	if _, bad := fields["department_id"]; !bad && s.departments != nil {
		exists, err := s.departments.Exists(ctx, input.DepartmentID)
		if err != nil {
			return internalError(err, "failed to validate department")
		}
		if !exists {
			fields["department_id"] = msgDepartmentNotFound
		}
	}
	if len(fields) > 0 {
		return appErrors.Validation(fields)
	}
	return nil
}

// reload fetches the stored row so the response carries the department name.
func (s *StudentService) reload(ctx context.Context, student *models.Student) *models.StudentView {
	record, err := s.repo.FindByID(ctx, student.ID)
	if err != nil {
		s.logger.Warn("reload student after write", zap.String("student_id", student.ID), zap.Error(err))
		view := models.StudentRecord{Student: *student}.View()
		return &view
	}
	view := record.View()
	return &view
}

func (s *StudentService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, DashboardCachePattern)
	}
}

func translateWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return appErrors.FieldError("email", msgEmailTaken)
	case errors.Is(err, repository.ErrUnknownDepartment):
		return appErrors.FieldError("department_id", msgDepartmentNotFound)
	default:
		return internalError(err, message)
	}
}

func applyStudentInput(student *models.Student, input models.StudentInput) {
	student.Name = input.Name
	student.Email = input.Email
	student.Phone = input.Phone
	student.Address = input.Address
	student.Gender = input.Gender
	student.DepartmentID = input.DepartmentID
}

func normaliseStudent(in models.StudentInput) models.StudentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Gender = models.Gender(strings.TrimSpace(string(in.Gender)))
	in.DepartmentID = strings.TrimSpace(in.DepartmentID)
	return in
}
