package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/services"
	"github.com/jobatlas/jobatlas_backend/websocket"
)

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub, engine *services.AlertEngine, geocoder *services.GeocodingService) {
	RegisterJobRoutes(e, db, geocoder)
	RegisterAlertRoutes(e, db, engine, geocoder)
	RegisterNotificationRoutes(e, db)

	// Notification stream: subscribes the connection to that email's alerts
	e.GET("/api/ws/:email", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub, c.Param("email"))
	})
}
