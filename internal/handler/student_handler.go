package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/service"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
	"github.com/noah-isme/vtc-admin-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, params listquery.Params) (listquery.Page[models.StudentView], error)
	Get(ctx context.Context, id string) (*models.StudentView, error)
	Create(ctx context.Context, input models.StudentInput) (*models.StudentView, error)
	Update(ctx context.Context, id string, input models.StudentInput) (*models.StudentView, error)
	Delete(ctx context.Context, id string) error
}

type studentExporter interface {
	Students(ctx context.Context, params listquery.Params, format string) (*service.ExportFile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
	exports  studentExporter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, exports studentExporter) *StudentHandler {
	return &StudentHandler{students: students, exports: exports}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or email"
// @Param sort query string false "Sort field (name, email, gender, department, created_at)"
// @Param direction query string false "asc or desc"
// @Param page query int false "Page"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, err := h.students.List(c.Request.Context(), listParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, page.Items, page.Pagination, page.Filters)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentInput true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var input models.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.students.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, student, "Student created successfully.")
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.StudentInput true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var input models.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, student, "Student updated successfully.")
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, nil, "Student deleted successfully.")
}

// Export godoc
// @Summary Export student roster
// @Description Downloads every student matching the search and sort as csv, pdf or xlsx.
// @Tags Students
// @Produce octet-stream
// @Param format query string false "csv (default), pdf or xlsx"
// @Param search query string false "Search by name or email"
// @Param sort query string false "Sort field"
// @Param direction query string false "asc or desc"
// @Success 200 {file} file
// @Failure 422 {object} response.Envelope
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	file, err := h.exports.Students(c.Request.Context(), listParams(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
