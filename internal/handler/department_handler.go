package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
	"github.com/noah-isme/vtc-admin-api/pkg/response"
)

type departmentService interface {
	List(ctx context.Context, params listquery.Params) (listquery.Page[models.DepartmentSummary], error)
	Get(ctx context.Context, id string) (*models.DepartmentSummary, error)
	Create(ctx context.Context, input models.DepartmentInput) (*models.Department, error)
	Update(ctx context.Context, id string, input models.DepartmentInput) (*models.Department, error)
	Delete(ctx context.Context, id string) error
}

// DepartmentHandler exposes department management endpoints.
type DepartmentHandler struct {
	service departmentService
}

// NewDepartmentHandler constructs DepartmentHandler.
func NewDepartmentHandler(service departmentService) *DepartmentHandler {
	return &DepartmentHandler{service: service}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Param search query string false "Search by name"
// @Param sort query string false "Sort field (name, duration, status, created_at)"
// @Param direction query string false "asc or desc"
// @Param page query int false "Page"
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), listParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, page.Items, page.Pagination, page.Filters)
}

// Get godoc
// @Summary Get department detail
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *DepartmentHandler) Get(c *gin.Context) {
	department, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department, nil)
}

// Create godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body models.DepartmentInput true "Department payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var input models.DepartmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	department, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, department, "Department created successfully.")
}

// Update godoc
// @Summary Update department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body models.DepartmentInput true "Department payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	var input models.DepartmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	department, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, department, "Department updated successfully.")
}

// Delete godoc
// @Summary Delete department
// @Description Departments that still have students cannot be deleted.
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, nil, "Department deleted successfully.")
}
