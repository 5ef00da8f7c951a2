package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/jobatlas/jobatlas_backend/config"
	"github.com/jobatlas/jobatlas_backend/middleware"
	"github.com/jobatlas/jobatlas_backend/repositories"
	"github.com/jobatlas/jobatlas_backend/routes"
	"github.com/jobatlas/jobatlas_backend/services"
	"github.com/jobatlas/jobatlas_backend/utils"
	"github.com/jobatlas/jobatlas_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (geocoding cache; optional)
	redisClient := config.ConnectRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories and services
	jobRepo := repositories.NewJobRepository(client)
	alertRepo := repositories.NewAlertRepository(client)
	notificationRepo := repositories.NewNotificationRepository(client)

	geocoder := services.NewGeocodingService(redisClient)
	notifier := utils.NewAlertNotifier(wsHub)
	engine := services.NewAlertEngine(jobRepo, alertRepo, notificationRepo, notifier)

	// Start the periodic alert sweep
	scheduler := services.NewScheduler(engine)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start alert scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(middleware.RequestID())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		ConnectSources: []string{"ws:", "wss:"},
	}))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "JobAtlas Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Setup routes
	routes.SetupRoutes(e, client, wsHub, engine, geocoder)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
