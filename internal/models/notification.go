package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationNewStudent is the type of notifications raised on student creation.
const NotificationNewStudent = "new_student"

// Notification is one staff inbox entry.
type Notification struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Type      string         `db:"type" json:"type"`
	StudentID string         `db:"student_id" json:"student_id"`
	Data      types.JSONText `db:"data" json:"data"`
	ReadAt    *time.Time     `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// NewStudentData is the payload stored with a new-student notification.
type NewStudentData struct {
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	DepartmentID string `json:"department_id"`
	Message      string `json:"message"`
}
