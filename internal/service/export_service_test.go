package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

func TestExportServiceStudentsCSV(t *testing.T) {
	f := newStudentFixture()
	_, err := f.svc.Create(context.Background(), validStudentInput("jane@example.com"))
	require.NoError(t, err)

	svc := NewExportService(f.repo, nil)
	svc.now = func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) }

	file, err := svc.Students(context.Background(), listquery.Params{Search: "jane", Sort: "name", Direction: "asc"}, "")
	require.NoError(t, err)
	assert.Equal(t, "students_20240305.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, rosterHeaders, records[0])
	assert.Equal(t, []string{"Jane Doe", "jane@example.com", "08123456789", "Jl. Merdeka 1", "female", "Welding", "Jan 01, 2024"}, records[1])

	assert.True(t, f.repo.lastQuery.Sorted())
	assert.Equal(t, "jane", f.repo.lastQuery.Filters().Search)
}

func TestExportServiceStudentsOtherFormats(t *testing.T) {
	f := newStudentFixture()
	svc := NewExportService(f.repo, nil)

	pdf, err := svc.Students(context.Background(), listquery.Params{}, "PDF")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF")))

	xlsx, err := svc.Students(context.Background(), listquery.Params{}, "xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, xlsx.Data)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	f := newStudentFixture()
	svc := NewExportService(f.repo, nil)

	_, err := svc.Students(context.Background(), listquery.Params{}, "docx")
	requireFieldError(t, err, "format")
}
