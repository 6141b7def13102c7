package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/repository"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/export"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

var rosterHeaders = []string{"Name", "Email", "Phone", "Address", "Gender", "Department", "Registered At"}

type studentExportRepository interface {
	ListAll(ctx context.Context, q listquery.Query) ([]models.StudentRecord, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the student roster into downloadable files.
type ExportService struct {
	students studentExportRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(students studentExportRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, logger: logger, now: time.Now}
}

// Students renders every student matching the list search and sort.
func (s *ExportService) Students(ctx context.Context, params listquery.Params, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.FieldError("format", "The selected format is invalid.")
	}
	records, err := s.students.ListAll(ctx, repository.StudentListing.Prepare(params))
	if err != nil {
		return nil, internalError(err, "failed to load students for export")
	}

	dataset := export.Dataset{Title: "Student Roster", Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(records))}
	for _, record := range records {
		view := record.View()
		department := ""
		if view.Department != nil {
			department = view.Department.Name
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":          view.Name,
			"Email":         view.Email,
			"Phone":         view.Phone,
			"Address":       view.Address,
			"Gender":        string(view.Gender),
			"Department":    department,
			"Registered At": view.RegisteredAt,
		})
	}

	renderer, err := export.NewRenderer(format)
	if err != nil {
		return nil, internalError(err, "failed to prepare export")
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	s.logger.Info("student roster exported", zap.String("format", string(format)), zap.Int("rows", len(records)))

	return &ExportFile{
		Filename:    fmt.Sprintf("students_%s.%s", s.now().UTC().Format("20060102"), format.Extension()),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}
