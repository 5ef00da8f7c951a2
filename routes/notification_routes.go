package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/controllers"
	"github.com/jobatlas/jobatlas_backend/repositories"
)

// RegisterNotificationRoutes registers all notification-related routes
func RegisterNotificationRoutes(e *echo.Echo, db *mongo.Client) {
	notificationController := controllers.NewNotificationController(repositories.NewNotificationRepository(db))

	notificationGroup := e.Group("/api/notifications")
	notificationGroup.GET("/:email", notificationController.ListNotifications)
	notificationGroup.PUT("/:id/read", notificationController.MarkRead)
}
