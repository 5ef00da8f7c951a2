// models/alert.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert type values. Each value selects one evaluation strategy in the alert
// engine.
const (
	AlertTypeGeofence       = "geofence"
	AlertTypeSalaryIncrease = "salary_increase"
	AlertTypeNewCompany     = "new_company"
)

// Alert is a saved user alert. Deletion is logical: Deactivate flips IsActive
// to false and the record is kept for its notification history. LastChecked is
// the evaluation cutoff and only ever moves forward.
type Alert struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserEmail    string             `json:"userEmail" bson:"userEmail"`
	AlertName    string             `json:"alertName" bson:"alertName"`
	AlertType    string             `json:"alertType" bson:"alertType"`
	CenterLat    float64            `json:"centerLat" bson:"centerLat"`
	CenterLng    float64            `json:"centerLng" bson:"centerLng"`
	RadiusKm     float64            `json:"radiusKm" bson:"radiusKm"`
	Category     string             `json:"category,omitempty" bson:"category,omitempty"`
	MinSalary    int                `json:"minSalary,omitempty" bson:"minSalary,omitempty"`
	TargetSalary int                `json:"targetSalary,omitempty" bson:"targetSalary,omitempty"`
	LocationName string             `json:"locationName,omitempty" bson:"locationName,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	LastChecked  time.Time          `json:"lastChecked" bson:"lastChecked"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
}

// PlaceName returns the display name for the alert's center, falling back to
// the alert name when no location name was stored.
func (a *Alert) PlaceName() string {
	if a.LocationName != "" {
		return a.LocationName
	}
	return a.AlertName
}

// CreateAlertRequest is the request body for creating an alert. The location
// is geocoded into the alert's center; alternatively the caller may supply
// explicit coordinates.
type CreateAlertRequest struct {
	UserEmail    string   `json:"userEmail" validate:"required,email"`
	AlertName    string   `json:"alertName" validate:"required"`
	AlertType    string   `json:"alertType" validate:"required,oneof=geofence salary_increase new_company"`
	Location     string   `json:"location"`
	CenterLat    *float64 `json:"centerLat"`
	CenterLng    *float64 `json:"centerLng"`
	RadiusKm     float64  `json:"radiusKm" validate:"required,gt=0"`
	Category     string   `json:"category" validate:"omitempty,oneof=Software 'Data Science' DevOps Security Design"`
	MinSalary    int      `json:"minSalary" validate:"gte=0"`
	TargetSalary int      `json:"targetSalary" validate:"gte=0"`
}

// MatchResult summarizes one alert evaluation for the caller. Err is set when
// that alert's evaluation failed; a batch check reports failures per alert
// instead of aborting.
type MatchResult struct {
	AlertID             string `json:"alertId"`
	AlertName           string `json:"alertName"`
	NotificationCreated bool   `json:"notificationCreated"`
	MatchCount          int    `json:"matchCount"`
	Err                 string `json:"error,omitempty"`
}
