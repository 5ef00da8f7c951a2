package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/controllers"
	"github.com/jobatlas/jobatlas_backend/services"
)

// RegisterJobRoutes registers job store and spatial query routes
func RegisterJobRoutes(e *echo.Echo, db *mongo.Client, geocoder *services.GeocodingService) {
	jobController := controllers.NewJobController(db, geocoder)

	jobGroup := e.Group("/api/jobs")
	jobGroup.POST("", jobController.AddJob)
	jobGroup.GET("/search", jobController.SearchJobs)
	jobGroup.POST("/within-polygon", jobController.JobsWithinPolygon)
	jobGroup.GET("/nearest", jobController.NearestJobs)
	jobGroup.GET("/stats", jobController.JobStats)
	jobGroup.GET("/commute", jobController.CommuteAccessibility)
	jobGroup.GET("/salary-gradient", jobController.SalaryGradient)
	jobGroup.GET("/hub-overlap", jobController.TechHubOverlap)
}
