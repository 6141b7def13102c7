package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/pkg/response"
)

const applicationReceived = "Your application has been submitted successfully! We will contact you soon."

type activeDepartments interface {
	Active(ctx context.Context) ([]models.Department, error)
}

type studentRegistrar interface {
	Register(ctx context.Context, input models.StudentInput) error
}

// RegistrationHandler serves the public application form.
type RegistrationHandler struct {
	departments activeDepartments
	students    studentRegistrar
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(departments activeDepartments, students studentRegistrar) *RegistrationHandler {
	return &RegistrationHandler{departments: departments, students: students}
}

// Departments godoc
// @Summary List departments open for application
// @Tags Registration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/departments [get]
func (h *RegistrationHandler) Departments(c *gin.Context) {
	departments, err := h.departments.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if departments == nil {
		departments = []models.Department{}
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Apply godoc
// @Summary Submit a student application
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body models.StudentInput true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /public/apply [post]
func (h *RegistrationHandler) Apply(c *gin.Context) {
	var input models.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.students.Register(c.Request.Context(), input); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, nil, applicationReceived)
}
