package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jobatlas/jobatlas_backend/models"
)

const (
	// notificationPreviewCap bounds the job snapshots embedded in a new_jobs
	// notification payload.
	notificationPreviewCap = 5

	// salaryWindow is the trailing lookback for salary_increase alerts. It is
	// measured from evaluation time, not from lastChecked.
	salaryWindow = 7 * 24 * time.Hour
)

// JobFinder is the slice of the job store the engine queries.
type JobFinder interface {
	FindWithinRadius(ctx context.Context, lat, lng, radiusKm float64, filters models.JobFilters) ([]models.JobPosting, error)
}

// AlertStore is the slice of the alert store the engine needs. Advancing the
// cutoff is a compare-and-swap so matching and advancing act as one step.
type AlertStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Alert, error)
	ListActiveForUser(ctx context.Context, userEmail string) ([]models.Alert, error)
	ListActive(ctx context.Context) ([]models.Alert, error)
	AdvanceLastChecked(ctx context.Context, id primitive.ObjectID, observed, next time.Time) (bool, error)
}

// NotificationAppender appends to the notification log.
type NotificationAppender interface {
	Append(ctx context.Context, notification models.Notification) (models.Notification, error)
}

// Deliverer pushes a stored notification out-of-band (email, websocket).
// Delivery is best-effort and never fails an evaluation.
type Deliverer interface {
	Deliver(notification models.Notification)
}

// AlertEngine evaluates saved alerts against the job store and records
// deduplicated notifications. Store handles are injected; there is no shared
// connection state. Evaluation of one alert is serialized by a per-alert
// mutex, evaluations of different alerts are independent.
type AlertEngine struct {
	jobs          JobFinder
	alerts        AlertStore
	notifications NotificationAppender
	deliverer     Deliverer

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// now is swappable in tests.
	now func() time.Time
}

func NewAlertEngine(jobs JobFinder, alerts AlertStore, notifications NotificationAppender, deliverer Deliverer) *AlertEngine {
	return &AlertEngine{
		jobs:          jobs,
		alerts:        alerts,
		notifications: notifications,
		deliverer:     deliverer,
		locks:         make(map[string]*sync.Mutex),
		now:           time.Now,
	}
}

// alertLock returns the mutex serializing evaluation of one alert id.
func (e *AlertEngine) alertLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Evaluate runs one alert's evaluation cycle: query the job store with the
// alert's predicate and cutoff, advance the cutoff, and append a notification
// when the match set is non-empty. A store failure aborts with no side
// effects; the cutoff is only advanced on a successful match pass, and only
// the evaluator that wins the compare-and-swap may append a notification, so
// a retried or concurrent evaluation cannot double-notify.
func (e *AlertEngine) Evaluate(ctx context.Context, alertID primitive.ObjectID) (models.MatchResult, error) {
	lock := e.alertLock(alertID.Hex())
	lock.Lock()
	defer lock.Unlock()

	alert, err := e.alerts.GetByID(ctx, alertID)
	if err != nil {
		return models.MatchResult{AlertID: alertID.Hex()}, storeErr(err)
	}

	result := models.MatchResult{AlertID: alertID.Hex(), AlertName: alert.AlertName}

	if !alert.IsActive {
		return result, ErrAlertInactive
	}
	if err := validateAlert(alert); err != nil {
		return result, err
	}

	now := e.now()

	var matches int
	var notification *models.Notification
	switch alert.AlertType {
	case models.AlertTypeGeofence:
		matches, notification, err = e.evaluateGeofence(ctx, alert)
	case models.AlertTypeSalaryIncrease:
		matches, notification, err = e.evaluateSalaryIncrease(ctx, alert, now)
	case models.AlertTypeNewCompany:
		matches, notification, err = e.evaluateNewCompanies(ctx, alert)
	default:
		// validateAlert already rejected unknown types
		return result, &ConfigError{Reason: "unknown alert type " + alert.AlertType}
	}
	if err != nil {
		return result, err
	}

	// Matching succeeded; claim the window. The new cutoff is taken after the
	// match query returned, so a posting stamped while the query ran cannot be
	// counted now and again after the cutoff. A posting the query missed in
	// that sliver is lost instead; for an alerting system a duplicate is the
	// worse failure. A lost swap means another evaluator advanced the cutoff
	// first and owns the notification.
	cutoff := e.now()
	won, err := e.alerts.AdvanceLastChecked(ctx, alert.ID, alert.LastChecked, cutoff)
	if err != nil {
		return result, storeErr(err)
	}
	if !won {
		log.Printf("Alert %s: lastChecked advanced concurrently, skipping notification", alert.ID.Hex())
		return result, nil
	}

	result.MatchCount = matches

	if notification != nil {
		stored, err := e.notifications.Append(ctx, *notification)
		if err != nil {
			return result, storeErr(err)
		}
		result.NotificationCreated = true
		if e.deliverer != nil {
			e.deliverer.Deliver(stored)
		}
	}

	return result, nil
}

// EvaluateAllActive evaluates each of the user's active alerts independently.
// One alert's failure is recorded in its MatchResult and does not abort the
// others.
func (e *AlertEngine) EvaluateAllActive(ctx context.Context, userEmail string) ([]models.MatchResult, error) {
	alerts, err := e.alerts.ListActiveForUser(ctx, userEmail)
	if err != nil {
		return nil, storeErr(err)
	}
	return e.evaluateEach(ctx, alerts), nil
}

// EvaluateEverything sweeps every active alert across all users; this is the
// scheduler's entry point.
func (e *AlertEngine) EvaluateEverything(ctx context.Context) ([]models.MatchResult, error) {
	alerts, err := e.alerts.ListActive(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return e.evaluateEach(ctx, alerts), nil
}

func (e *AlertEngine) evaluateEach(ctx context.Context, alerts []models.Alert) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(alerts))
	for _, alert := range alerts {
		result, err := e.Evaluate(ctx, alert.ID)
		if err != nil {
			log.Printf("Alert %s evaluation failed: %v", alert.ID.Hex(), err)
			result.Err = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// evaluateGeofence matches postings inside the alert's radius created at or
// after the cutoff, optionally narrowed by category and salary floor.
// Matching is read-only and idempotent while the cutoff is held fixed.
func (e *AlertEngine) evaluateGeofence(ctx context.Context, alert models.Alert) (int, *models.Notification, error) {
	filters := models.JobFilters{
		Category:     alert.Category,
		MinSalary:    alert.MinSalary,
		CreatedSince: alert.LastChecked,
	}
	jobs, err := e.jobs.FindWithinRadius(ctx, alert.CenterLat, alert.CenterLng, alert.RadiusKm, filters)
	if err != nil {
		return 0, nil, storeErr(err)
	}
	if len(jobs) == 0 {
		return 0, nil, nil
	}

	preview := make([]models.JobSnapshot, 0, notificationPreviewCap)
	for i, job := range jobs {
		if i == notificationPreviewCap {
			break
		}
		preview = append(preview, models.SnapshotOf(job))
	}

	notification := &models.Notification{
		UserEmail: alert.UserEmail,
		AlertID:   alert.ID,
		Type:      models.NotificationTypeNewJobs,
		Message:   fmt.Sprintf("%d new job(s) within %.0fkm of %s", len(jobs), alert.RadiusKm, alert.PlaceName()),
		Data: models.NewJobsData{
			JobCount: len(jobs),
			Preview:  preview,
		},
	}
	return len(jobs), notification, nil
}

// evaluateSalaryIncrease compares the mean salary of postings inside the
// radius over the trailing 7 days against the alert's target. The window is
// anchored at evaluation time; lastChecked plays no part in it but is still
// advanced afterwards. An empty window is a no-op, not an error.
func (e *AlertEngine) evaluateSalaryIncrease(ctx context.Context, alert models.Alert, now time.Time) (int, *models.Notification, error) {
	filters := models.JobFilters{
		Category:     alert.Category,
		CreatedSince: now.Add(-salaryWindow),
	}
	jobs, err := e.jobs.FindWithinRadius(ctx, alert.CenterLat, alert.CenterLng, alert.RadiusKm, filters)
	if err != nil {
		return 0, nil, storeErr(err)
	}
	if len(jobs) == 0 {
		return 0, nil, nil
	}

	total := 0
	for _, job := range jobs {
		total += job.Salary
	}
	mean := float64(total) / float64(len(jobs))

	if mean <= float64(alert.TargetSalary) {
		return len(jobs), nil, nil
	}

	notification := &models.Notification{
		UserEmail: alert.UserEmail,
		AlertID:   alert.ID,
		Type:      models.NotificationTypeSalaryIncrease,
		Message:   fmt.Sprintf("Average salary near %s reached $%.0f across %d posting(s), above your $%d target", alert.PlaceName(), mean, len(jobs), alert.TargetSalary),
		Data: models.SalaryIncreaseData{
			MeanSalary:   mean,
			TargetSalary: alert.TargetSalary,
			JobCount:     len(jobs),
		},
	}
	return len(jobs), notification, nil
}

// evaluateNewCompanies groups postings created since the cutoff by company
// and reports each company's first posting and count in one aggregate
// notification.
func (e *AlertEngine) evaluateNewCompanies(ctx context.Context, alert models.Alert) (int, *models.Notification, error) {
	filters := models.JobFilters{
		Category:     alert.Category,
		MinSalary:    alert.MinSalary,
		CreatedSince: alert.LastChecked,
	}
	jobs, err := e.jobs.FindWithinRadius(ctx, alert.CenterLat, alert.CenterLng, alert.RadiusKm, filters)
	if err != nil {
		return 0, nil, storeErr(err)
	}
	if len(jobs) == 0 {
		return 0, nil, nil
	}

	// Group in query order so the first posting per company is stable.
	counts := make(map[string]int)
	first := make(map[string]models.JobPosting)
	var order []string
	for _, job := range jobs {
		if _, seen := counts[job.Company]; !seen {
			order = append(order, job.Company)
			first[job.Company] = job
		}
		counts[job.Company]++
	}

	companies := make([]models.NewCompanyData, 0, len(order))
	for _, company := range order {
		companies = append(companies, models.NewCompanyData{
			Company:      company,
			JobCount:     counts[company],
			FirstPosting: models.SnapshotOf(first[company]),
		})
	}

	notification := &models.Notification{
		UserEmail: alert.UserEmail,
		AlertID:   alert.ID,
		Type:      models.NotificationTypeNewCompany,
		Message:   fmt.Sprintf("%d company(ies) newly posting within %.0fkm of %s", len(companies), alert.RadiusKm, alert.PlaceName()),
		Data:      companies,
	}
	return len(jobs), notification, nil
}

// validateAlert rejects malformed definitions before they reach a store
// query. These are caller errors, never retried.
func validateAlert(alert models.Alert) error {
	switch alert.AlertType {
	case models.AlertTypeGeofence, models.AlertTypeSalaryIncrease, models.AlertTypeNewCompany:
	default:
		return &ConfigError{Reason: "unknown alert type " + alert.AlertType}
	}
	if alert.RadiusKm <= 0 {
		return &ConfigError{Reason: "radius must be positive"}
	}
	if len(alert.UserEmail) == 0 {
		return &ConfigError{Reason: "missing user email"}
	}
	if alert.AlertType == models.AlertTypeSalaryIncrease && alert.TargetSalary <= 0 {
		return &ConfigError{Reason: "salary_increase alert requires a positive target salary"}
	}
	return nil
}
