package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRecordView(t *testing.T) {
	record := StudentRecord{
		Student: Student{
			ID:           "s-1",
			Name:         "Jane",
			DepartmentID: "d-1",
			CreatedAt:    time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
		},
		DepartmentName: sql.NullString{String: "Computer Science", Valid: true},
	}

	view := record.View()
	require.NotNil(t, view.Department)
	assert.Equal(t, "Computer Science", view.Department.Name)
	assert.Equal(t, "d-1", view.Department.ID)
	assert.Equal(t, "Mar 05, 2024", view.RegisteredAt)
}

func TestStudentRecordViewMissingDepartment(t *testing.T) {
	view := StudentRecord{Student: Student{DepartmentID: "gone"}}.View()
	assert.Nil(t, view.Department)
	assert.Equal(t, "gone", view.DepartmentID)
}
