package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/models"
	"github.com/jobatlas/jobatlas_backend/repositories"
	"github.com/jobatlas/jobatlas_backend/services"
)

type AlertController struct {
	alertRepo *repositories.AlertRepository
	engine    *services.AlertEngine
	geocoder  *services.GeocodingService
}

func NewAlertController(db *mongo.Client, engine *services.AlertEngine, geocoder *services.GeocodingService) *AlertController {
	return &AlertController{
		alertRepo: repositories.NewAlertRepository(db),
		engine:    engine,
		geocoder:  geocoder,
	}
}

// CreateAlert validates and stores a new alert. Malformed definitions are
// rejected here so they never reach evaluation. The center comes either from
// explicit coordinates or from geocoding the free-text location.
func (ac *AlertController) CreateAlert(c echo.Context) error {
	var req models.CreateAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}
	if req.AlertType == models.AlertTypeSalaryIncrease && req.TargetSalary <= 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "salary_increase alerts require a positive targetSalary",
		})
	}

	var lat, lng float64
	switch {
	case req.CenterLat != nil && req.CenterLng != nil:
		lat, lng = *req.CenterLat, *req.CenterLng
	case req.Location != "":
		var err error
		lat, lng, err = ac.geocoder.Geocode(c.Request().Context(), req.Location)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, models.Response{
					Status:  http.StatusBadRequest,
					Message: "Could not geocode location. Please check the address.",
				})
			}
			log.Printf("Geocoding failed for %q: %v", req.Location, err)
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "Geocoding service unavailable, try again",
			})
		}
	default:
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Either a location or explicit centerLat/centerLng is required",
		})
	}

	alert := models.Alert{
		UserEmail:    req.UserEmail,
		AlertName:    req.AlertName,
		AlertType:    req.AlertType,
		CenterLat:    lat,
		CenterLng:    lng,
		RadiusKm:     req.RadiusKm,
		Category:     req.Category,
		MinSalary:    req.MinSalary,
		TargetSalary: req.TargetSalary,
		LocationName: req.Location,
	}

	created, err := ac.alertRepo.Create(c.Request().Context(), alert)
	if err != nil {
		log.Printf("Error creating alert: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Alert created",
		Data:    created,
	})
}

// ListAlerts returns the user's active alerts. Deactivated alerts are
// excluded permanently.
func (ac *AlertController) ListAlerts(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email is required",
		})
	}

	alerts, err := ac.alertRepo.ListActiveForUser(c.Request().Context(), email)
	if err != nil {
		log.Printf("Error listing alerts for %s: %v", email, err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Active alerts",
		Data:    alerts,
	})
}

// DeactivateAlert flips the alert's active flag off. The record and its
// notification history are retained; this is not a true delete.
func (ac *AlertController) DeactivateAlert(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid alert ID",
		})
	}

	if err := ac.alertRepo.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Alert not found",
			})
		}
		log.Printf("Error deactivating alert %s: %v", id.Hex(), err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Alert deactivated",
	})
}

// CheckAlert evaluates one alert now.
func (ac *AlertController) CheckAlert(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid alert ID",
		})
	}

	result, err := ac.engine.Evaluate(c.Request().Context(), id)
	if err != nil {
		return ac.evaluationError(c, id.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Alert evaluated",
		Data:    result,
	})
}

// CheckAllAlerts evaluates every active alert of a user; failures are
// reported per alert in the result list.
func (ac *AlertController) CheckAllAlerts(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email is required",
		})
	}

	results, err := ac.engine.EvaluateAllActive(c.Request().Context(), email)
	if err != nil {
		log.Printf("Error evaluating alerts for %s: %v", email, err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Could not evaluate alerts, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Alerts evaluated",
		Data:    results,
	})
}

// evaluationError maps the engine's error taxonomy onto HTTP statuses. A
// transient store failure must read as "try again", never as "no matches".
func (ac *AlertController) evaluationError(c echo.Context, id string, err error) error {
	var configErr *services.ConfigError
	switch {
	case errors.Is(err, services.ErrAlertNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Alert not found",
		})
	case errors.Is(err, services.ErrAlertInactive):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Alert is deactivated",
		})
	case errors.As(err, &configErr):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: configErr.Error(),
		})
	default:
		log.Printf("Error evaluating alert %s: %v", id, err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Could not evaluate alert, try again",
		})
	}
}
