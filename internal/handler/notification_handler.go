package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vtc-admin-api/internal/middleware"
	"github.com/noah-isme/vtc-admin-api/internal/models"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
	"github.com/noah-isme/vtc-admin-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, page int) (listquery.Page[models.Notification], error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationHandler serves the staff notification inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.List(c.Request.Context(), claims.UserID, listParams(c).Page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Items, &result.Pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
