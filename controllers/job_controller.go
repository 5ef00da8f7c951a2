package controllers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/models"
	"github.com/jobatlas/jobatlas_backend/repositories"
	"github.com/jobatlas/jobatlas_backend/services"
	"github.com/jobatlas/jobatlas_backend/utils"
)

type JobController struct {
	jobRepo  *repositories.JobRepository
	hubRepo  *repositories.TechHubRepository
	geocoder *services.GeocodingService
}

func NewJobController(db *mongo.Client, geocoder *services.GeocodingService) *JobController {
	return &JobController{
		jobRepo:  repositories.NewJobRepository(db),
		hubRepo:  repositories.NewTechHubRepository(db),
		geocoder: geocoder,
	}
}

// ClusteredJob pairs a posting with its cluster id for one search response.
// Cluster ids are only meaningful within that response.
type ClusteredJob struct {
	models.JobPosting
	Cluster int `json:"cluster"`
}

// PolygonRequest is the request body for polygon containment search. The ring
// is a closed sequence of [lng, lat] pairs.
type PolygonRequest struct {
	Coordinates [][]float64 `json:"coordinates" validate:"required,min=4"`
}

// AddJob creates a job posting. The free-text location is geocoded first; a
// geocoding miss rejects the request so the caller can correct the address.
func (jc *JobController) AddJob(c echo.Context) error {
	var req models.AddJobRequest
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

	lat, lng, err := jc.geocoder.Geocode(c.Request().Context(), req.Location)
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

	job := models.JobPosting{
		Title:          req.Title,
		Company:        req.Company,
		Location:       req.Location,
		Coordinates:    []float64{lng, lat},
		Salary:         req.Salary,
		JobType:        req.JobType,
		Category:       req.Category,
		Experience:     req.Experience,
		RemoteFriendly: req.RemoteFriendly,
		Description:    req.Description,
		Requirements:   req.Requirements,
		PostedDate:     req.PostedDate,
	}

	id, err := jc.jobRepo.Insert(c.Request().Context(), job)
	if err != nil {
		log.Printf("Error inserting job: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Job added successfully",
		Data: map[string]interface{}{
			"id":  id,
			"lat": lat,
			"lng": lng,
		},
	})
}

// SearchJobs runs a radius search with optional category/salary filters.
// With cluster=true, DBSCAN cluster ids are attached to the results.
func (jc *JobController) SearchJobs(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	radiusKm, err3 := strconv.ParseFloat(c.QueryParam("radius_km"), 64)
	if err1 != nil || err2 != nil || err3 != nil || radiusKm <= 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "lat, lng and a positive radius_km are required",
		})
	}

	filters := models.JobFilters{Category: c.QueryParam("category")}
	if minSalaryStr := c.QueryParam("min_salary"); minSalaryStr != "" {
		minSalary, err := strconv.Atoi(minSalaryStr)
		if err != nil || minSalary < 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "min_salary must be a non-negative integer",
			})
		}
		filters.MinSalary = minSalary
	}

	jobs, err := jc.jobRepo.FindWithinRadius(c.Request().Context(), lat, lng, radiusKm, filters)
	if err != nil {
		log.Printf("Error searching jobs: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	if c.QueryParam("cluster") != "true" {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Jobs found",
			Data:    jobs,
		})
	}

	labels := utils.ClusterJobs(jobs, utils.DefaultClusterEps, utils.DefaultMinSamples)
	clustered := make([]ClusteredJob, len(jobs))
	for i, job := range jobs {
		clustered[i] = ClusteredJob{JobPosting: job, Cluster: labels[i]}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Jobs found",
		Data:    clustered,
	})
}

// JobsWithinPolygon returns postings inside the posted polygon ring.
func (jc *JobController) JobsWithinPolygon(c echo.Context) error {
	var req PolygonRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if len(req.Coordinates) < 4 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Polygon requires at least 4 [lng, lat] pairs (closed ring)",
		})
	}

	jobs, err := jc.jobRepo.FindWithinPolygon(c.Request().Context(), req.Coordinates)
	if err != nil {
		log.Printf("Error querying polygon: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Jobs found",
		Data:    jobs,
	})
}

// NearestJobs returns the postings closest to a point, ascending by distance.
func (jc *JobController) NearestJobs(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "lat and lng are required",
		})
	}

	limit := int64(10)
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.ParseInt(limitStr, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := jc.jobRepo.FindNearest(c.Request().Context(), lat, lng, limit)
	if err != nil {
		log.Printf("Error querying nearest jobs: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Jobs found",
		Data:    jobs,
	})
}

// CommuteAccessibility returns the postings within commuting distance of a
// home point, ascending by distance.
func (jc *JobController) CommuteAccessibility(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "lat and lng are required",
		})
	}

	maxKm := services.DefaultMaxCommuteKm
	if maxKmStr := c.QueryParam("max_km"); maxKmStr != "" {
		parsed, err := strconv.ParseFloat(maxKmStr, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "max_km must be a positive number",
			})
		}
		maxKm = parsed
	}

	jobs, err := jc.jobRepo.ListAll(c.Request().Context())
	if err != nil {
		log.Printf("Error listing jobs for commute analysis: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Accessible jobs",
		Data:    services.CommuteAccessibility(jobs, lat, lng, maxKm),
	})
}

// SalaryGradient returns distance/salary samples around a center point, for
// the salary-over-distance chart.
func (jc *JobController) SalaryGradient(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "lat and lng are required",
		})
	}

	maxRadiusKm := services.DefaultGradientMaxKm
	if radiusStr := c.QueryParam("max_radius_km"); radiusStr != "" {
		parsed, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "max_radius_km must be a positive number",
			})
		}
		maxRadiusKm = parsed
	}

	jobs, err := jc.jobRepo.ListAll(c.Request().Context())
	if err != nil {
		log.Printf("Error listing jobs for salary gradient: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Salary gradient",
		Data:    services.SalaryGradient(jobs, lat, lng, maxRadiusKm),
	})
}

// TechHubOverlap reports, per tech hub, the postings inside its polygon and
// their mean salary against the hub's expected salary.
func (jc *JobController) TechHubOverlap(c echo.Context) error {
	ctx := c.Request().Context()

	hubs, err := jc.hubRepo.ListAll(ctx)
	if err != nil {
		log.Printf("Error listing tech hubs: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	jobs, err := jc.jobRepo.ListAll(ctx)
	if err != nil {
		log.Printf("Error listing jobs for hub overlap: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Tech hub overlap",
		Data:    services.TechHubOverlap(hubs, jobs),
	})
}

// locationStats aggregates postings per location name.
type locationStats struct {
	Location   string  `json:"location"`
	JobCount   int     `json:"jobCount"`
	MeanSalary float64 `json:"meanSalary"`
}

// JobStats returns market statistics: totals, per-location salary means, and
// job density when a center and radius are supplied.
func (jc *JobController) JobStats(c echo.Context) error {
	ctx := c.Request().Context()

	jobs, err := jc.jobRepo.ListAll(ctx)
	if err != nil {
		log.Printf("Error listing jobs for stats: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Database error, try again",
		})
	}

	totals := make(map[string]*locationStats)
	var order []string
	for _, job := range jobs {
		s, ok := totals[job.Location]
		if !ok {
			s = &locationStats{Location: job.Location}
			totals[job.Location] = s
			order = append(order, job.Location)
		}
		s.JobCount++
		s.MeanSalary += float64(job.Salary)
	}
	byLocation := make([]locationStats, 0, len(order))
	for _, loc := range order {
		s := totals[loc]
		s.MeanSalary /= float64(s.JobCount)
		byLocation = append(byLocation, *s)
	}

	data := map[string]interface{}{
		"totalJobs":  len(jobs),
		"byLocation": byLocation,
	}

	// Optional density: jobs per square km inside the given circle.
	latStr, lngStr, radiusStr := c.QueryParam("lat"), c.QueryParam("lng"), c.QueryParam("radius_km")
	if latStr != "" && lngStr != "" && radiusStr != "" {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		radiusKm, err3 := strconv.ParseFloat(radiusStr, 64)
		if err1 != nil || err2 != nil || err3 != nil || radiusKm <= 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "lat, lng and a positive radius_km are required for density",
			})
		}
		count, err := jc.jobRepo.CountWithinRadius(ctx, lat, lng, radiusKm)
		if err != nil {
			log.Printf("Error counting jobs for density: %v", err)
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "Database error, try again",
			})
		}
		area := math.Pi * radiusKm * radiusKm
		data["density"] = map[string]interface{}{
			"jobCount":    count,
			"areaSqKm":    area,
			"jobsPerSqKm": float64(count) / area,
			"radiusKm":    radiusKm,
			"center":      []float64{lat, lng},
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Job statistics",
		Data:    data,
	})
}
