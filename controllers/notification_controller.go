package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/models"
)

// NotificationStore is the slice of the notification store this controller
// needs, satisfied by repositories.NotificationRepository.
type NotificationStore interface {
	ListForUser(ctx context.Context, userEmail string, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
}

type NotificationController struct {
	notifications NotificationStore
}

func NewNotificationController(store NotificationStore) *NotificationController {
	return &NotificationController{
		notifications: store,
	}
}

// ListNotifications returns the user's notification history, newest first.
func (nc *NotificationController) ListNotifications(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email is required",
		})
	}

	limit := int64(50)
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.ParseInt(limitStr, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := nc.notifications.ListForUser(c.Request().Context(), email, limit)
	if err != nil {
		log.Printf("Error listing notifications for %s: %v", email, err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications",
		Data:    notifications,
	})
}

// MarkRead marks a notification as read. Idempotent: marking twice succeeds
// both times.
func (nc *NotificationController) MarkRead(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification ID",
		})
	}

	if err := nc.notifications.MarkRead(c.Request().Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Notification not found",
			})
		}
		log.Printf("Error marking notification %s read: %v", id.Hex(), err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification marked as read",
	})
}
