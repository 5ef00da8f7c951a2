package services

import (
	"sort"

	"github.com/jobatlas/jobatlas_backend/models"
	"github.com/jobatlas/jobatlas_backend/utils"
)

// Default query bounds for the market analytics endpoints.
const (
	DefaultMaxCommuteKm  = 50.0
	DefaultGradientMaxKm = 100.0
)

// CommuteJob pairs a posting with its great-circle distance from the queried
// home point.
type CommuteJob struct {
	models.JobPosting
	CommuteKm float64 `json:"commuteKm"`
}

// SalaryGradientPoint is one distance/salary sample of the gradient analysis.
type SalaryGradientPoint struct {
	DistanceKm float64 `json:"distanceKm"`
	Salary     int     `json:"salary"`
	Title      string  `json:"title"`
	Company    string  `json:"company"`
}

// HubOverlap summarizes the postings inside one tech hub against the hub's
// expected market salary.
type HubOverlap struct {
	HubName        string  `json:"hubName"`
	JobCount       int     `json:"jobCount"`
	MeanSalary     float64 `json:"meanSalary"`
	ExpectedSalary int     `json:"expectedSalary"`
	SalaryVariance float64 `json:"salaryVariance"`
}

// CommuteAccessibility returns the postings reachable within maxKm of the home
// point, each annotated with its commute distance, ascending by distance.
func CommuteAccessibility(jobs []models.JobPosting, homeLat, homeLng, maxKm float64) []CommuteJob {
	accessible := make([]CommuteJob, 0)
	for _, job := range jobs {
		distance := utils.HaversineKm(homeLat, homeLng, job.Lat(), job.Lng())
		if distance <= maxKm {
			accessible = append(accessible, CommuteJob{JobPosting: job, CommuteKm: distance})
		}
	}
	sort.Slice(accessible, func(i, j int) bool {
		return accessible[i].CommuteKm < accessible[j].CommuteKm
	})
	return accessible
}

// SalaryGradient samples distance/salary pairs for every posting within
// maxRadiusKm of the center, for the dashboard's salary-over-distance chart.
func SalaryGradient(jobs []models.JobPosting, centerLat, centerLng, maxRadiusKm float64) []SalaryGradientPoint {
	points := make([]SalaryGradientPoint, 0)
	for _, job := range jobs {
		distance := utils.HaversineKm(centerLat, centerLng, job.Lat(), job.Lng())
		if distance <= maxRadiusKm {
			points = append(points, SalaryGradientPoint{
				DistanceKm: distance,
				Salary:     job.Salary,
				Title:      job.Title,
				Company:    job.Company,
			})
		}
	}
	return points
}

// TechHubOverlap counts the postings inside each hub's polygon and compares
// their mean salary with the hub's expected salary. A hub with no postings
// reports zero mean and zero variance.
func TechHubOverlap(hubs []models.TechHub, jobs []models.JobPosting) []HubOverlap {
	results := make([]HubOverlap, 0, len(hubs))
	for _, hub := range hubs {
		ring := hub.Ring()

		count := 0
		total := 0
		for _, job := range jobs {
			if utils.PointInPolygon(job.Lng(), job.Lat(), ring) {
				count++
				total += job.Salary
			}
		}

		overlap := HubOverlap{
			HubName:        hub.Name,
			JobCount:       count,
			ExpectedSalary: hub.AvgSalary,
		}
		if count > 0 {
			overlap.MeanSalary = float64(total) / float64(count)
			overlap.SalaryVariance = overlap.MeanSalary - float64(hub.AvgSalary)
		}
		results = append(results, overlap)
	}
	return results
}
