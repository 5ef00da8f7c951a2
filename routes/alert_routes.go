package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/controllers"
	"github.com/jobatlas/jobatlas_backend/services"
)

// RegisterAlertRoutes registers alert CRUD and evaluation routes
func RegisterAlertRoutes(e *echo.Echo, db *mongo.Client, engine *services.AlertEngine, geocoder *services.GeocodingService) {
	alertController := controllers.NewAlertController(db, engine, geocoder)

	alertGroup := e.Group("/api/alerts")
	alertGroup.POST("", alertController.CreateAlert)
	alertGroup.GET("/:email", alertController.ListAlerts)
	alertGroup.DELETE("/:id", alertController.DeactivateAlert)
	alertGroup.POST("/:id/check", alertController.CheckAlert)
	alertGroup.POST("/check-all/:email", alertController.CheckAllAlerts)
}
