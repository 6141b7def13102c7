package dto

import "github.com/noah-isme/vtc-admin-api/internal/models"

// Statistics holds the dashboard enrollment counters. TotalDepartments
// counts active departments only.
type Statistics struct {
	TotalStudents    int `json:"totalStudents" db:"total_students"`
	MaleStudents     int `json:"maleStudents" db:"male_students"`
	FemaleStudents   int `json:"femaleStudents" db:"female_students"`
	OtherStudents    int `json:"otherStudents" db:"other_students"`
	TotalDepartments int `json:"totalDepartments" db:"-"`
}

// DashboardResponse is the staff dashboard payload.
type DashboardResponse struct {
	Statistics     Statistics           `json:"statistics"`
	RecentStudents []models.StudentView `json:"recentStudents"`
}
