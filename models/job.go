// models/job.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job type values
const (
	JobTypeFullTime = "Full-time"
	JobTypePartTime = "Part-time"
	JobTypeContract = "Contract"
	JobTypeRemote   = "Remote"
)

// Job category values
const (
	CategorySoftware    = "Software"
	CategoryDataScience = "Data Science"
	CategoryDevOps      = "DevOps"
	CategorySecurity    = "Security"
	CategoryDesign      = "Design"
)

// Experience level values
const (
	ExperienceEntry  = "Entry"
	ExperienceMid    = "Mid"
	ExperienceSenior = "Senior"
)

// JobPosting model. Coordinates are GeoJSON-ordered [lng, lat] (WGS84) so the
// 2dsphere index on the jobs collection can serve spatial queries. Postings are
// never updated or deleted after insertion.
type JobPosting struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title"`
	Company        string             `json:"company" bson:"company"`
	Location       string             `json:"location" bson:"location"`
	Coordinates    []float64          `json:"coordinates" bson:"coordinates"` // [lng, lat]
	Salary         int                `json:"salary" bson:"salary"`
	JobType        string             `json:"jobType" bson:"job_type"`
	Category       string             `json:"category" bson:"category"`
	Experience     string             `json:"experience" bson:"experience"`
	RemoteFriendly bool               `json:"remoteFriendly" bson:"remote_friendly"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Requirements   string             `json:"requirements,omitempty" bson:"requirements,omitempty"`
	PostedDate     string             `json:"postedDate" bson:"posted_date"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}

// Lat returns the latitude component of the posting's coordinates.
func (j *JobPosting) Lat() float64 {
	if len(j.Coordinates) < 2 {
		return 0
	}
	return j.Coordinates[1]
}

// Lng returns the longitude component of the posting's coordinates.
func (j *JobPosting) Lng() float64 {
	if len(j.Coordinates) < 2 {
		return 0
	}
	return j.Coordinates[0]
}

// AddJobRequest is the request body for creating a job posting. The location
// is free text and is geocoded server-side before insertion.
type AddJobRequest struct {
	Title          string `json:"title" validate:"required"`
	Company        string `json:"company" validate:"required"`
	Location       string `json:"location" validate:"required"`
	Salary         int    `json:"salary" validate:"gte=0"`
	JobType        string `json:"jobType" validate:"required,oneof=Full-time Part-time Contract Remote"`
	Category       string `json:"category" validate:"required,oneof=Software 'Data Science' DevOps Security Design"`
	Experience     string `json:"experience" validate:"required,oneof=Entry Mid Senior"`
	RemoteFriendly bool   `json:"remoteFriendly"`
	Description    string `json:"description"`
	Requirements   string `json:"requirements"`
	PostedDate     string `json:"postedDate"`
}

// JobFilters narrows job store queries. Zero values mean "no filter".
type JobFilters struct {
	Category     string
	MinSalary    int
	CreatedSince time.Time
}

// JobSnapshot is the by-value copy of a posting embedded in notification
// payloads, so a notification stays meaningful independent of the jobs
// collection.
type JobSnapshot struct {
	Title    string `json:"title" bson:"title"`
	Company  string `json:"company" bson:"company"`
	Location string `json:"location" bson:"location"`
	Salary   int    `json:"salary" bson:"salary"`
}

// SnapshotOf copies the notification-relevant fields of a posting.
func SnapshotOf(j JobPosting) JobSnapshot {
	return JobSnapshot{
		Title:    j.Title,
		Company:  j.Company,
		Location: j.Location,
		Salary:   j.Salary,
	}
}
