package models

import (
	"database/sql"
	"time"
)

// Gender enumerates the accepted student gender values.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// RegisteredAtLayout formats a student's creation date for display.
const RegisteredAtLayout = "Jan 02, 2006"

// Student represents a learner enrolled in a department.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Address      string    `db:"address" json:"address"`
	Gender       Gender    `db:"gender" json:"gender"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentRecord is a student row joined with its department name. The name
// is null when the department no longer exists.
type StudentRecord struct {
	Student
	DepartmentName sql.NullString `db:"department_name"`
}

// DepartmentRef is the compact department embedded in student payloads.
type DepartmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StudentView is the read projection returned to clients.
type StudentView struct {
	Student
	Department   *DepartmentRef `json:"department"`
	RegisteredAt string         `json:"registered_at"`
}

// View derives the read projection from a joined row.
func (r StudentRecord) View() StudentView {
	view := StudentView{
		Student:      r.Student,
		RegisteredAt: r.CreatedAt.Format(RegisteredAtLayout),
	}
	if r.DepartmentName.Valid {
		view.Department = &DepartmentRef{ID: r.DepartmentID, Name: r.DepartmentName.String}
	}
	return view
}

// StudentInput is the payload shared by staff CRUD and public registration.
type StudentInput struct {
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Phone        string `json:"phone" validate:"required,max=20"`
	Address      string `json:"address" validate:"required"`
	Gender       Gender `json:"gender" validate:"required,oneof=male female other"`
	DepartmentID string `json:"department_id" validate:"required,uuid"`
}
