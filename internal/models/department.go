package models

import "time"

// DepartmentStatus enumerates whether a department accepts students.
type DepartmentStatus string

const (
	DepartmentActive   DepartmentStatus = "active"
	DepartmentInactive DepartmentStatus = "inactive"
)

// Department is a study programme students enrol into.
type Department struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description"`
	Duration    string           `db:"duration" json:"duration"`
	Status      DepartmentStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// DepartmentSummary is a department row with its live student count.
type DepartmentSummary struct {
	Department
	StudentCount int `db:"student_count" json:"student_count"`
}

// DepartmentInput is the create/update payload for a department.
type DepartmentInput struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Duration    string           `json:"duration" validate:"required,max=255"`
	Status      DepartmentStatus `json:"status" validate:"required,oneof=active inactive"`
}
