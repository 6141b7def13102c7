package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/vtc-admin-api/pkg/database"
)

// Constraint names declared in db/schema.sql.
const (
	constraintStudentEmail      = "students_email_key"
	constraintStudentDepartment = "students_department_id_fkey"
)

var (
	// ErrDuplicateEmail is returned when a student email is already taken.
	ErrDuplicateEmail = errors.New("student email already exists")
	// ErrUnknownDepartment is returned when a student references a missing department.
	ErrUnknownDepartment = errors.New("department does not exist")
	// ErrDepartmentInUse is returned when deleting a department that still has students.
	ErrDepartmentInUse = errors.New("department still has students")
)

func translateStudentWrite(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err, constraintStudentEmail):
		return ErrDuplicateEmail
	case database.IsForeignKeyViolation(err, constraintStudentDepartment):
		return ErrUnknownDepartment
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
