// models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification type values
const (
	NotificationTypeNewJobs        = "new_jobs"
	NotificationTypeSalaryIncrease = "salary_increase"
	NotificationTypeNewCompany     = "new_company"
)

// Notification model. Append-only except for the IsRead flag; AlertID is a
// back-reference to the alert that produced it.
type Notification struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserEmail string             `json:"userEmail" bson:"userEmail"`
	AlertID   primitive.ObjectID `json:"alertId" bson:"alertId"`
	Type      string             `json:"type" bson:"type"`
	Message   string             `json:"message" bson:"message"`
	Data      interface{}        `json:"data,omitempty" bson:"data"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// NewJobsData is the payload of a new_jobs notification: the match count and a
// capped preview of the matched postings, copied by value.
type NewJobsData struct {
	JobCount int           `json:"jobCount" bson:"jobCount"`
	Preview  []JobSnapshot `json:"preview" bson:"preview"`
}

// SalaryIncreaseData is the payload of a salary_increase notification.
type SalaryIncreaseData struct {
	MeanSalary   float64 `json:"meanSalary" bson:"meanSalary"`
	TargetSalary int     `json:"targetSalary" bson:"targetSalary"`
	JobCount     int     `json:"jobCount" bson:"jobCount"`
}

// NewCompanyData aggregates the postings of one company first seen since the
// alert's last check.
type NewCompanyData struct {
	Company      string      `json:"company" bson:"company"`
	JobCount     int         `json:"jobCount" bson:"jobCount"`
	FirstPosting JobSnapshot `json:"firstPosting" bson:"firstPosting"`
}
