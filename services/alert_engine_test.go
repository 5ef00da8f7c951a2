package services_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/models"
	"github.com/jobatlas/jobatlas_backend/services"
	"github.com/jobatlas/jobatlas_backend/utils"
)

// In-memory fakes for the engine's store interfaces.

type fakeJobStore struct {
	jobs []models.JobPosting
	err  error
}

func (f *fakeJobStore) FindWithinRadius(_ context.Context, lat, lng, radiusKm float64, filters models.JobFilters) ([]models.JobPosting, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.JobPosting
	for _, j := range f.jobs {
		if utils.HaversineKm(lat, lng, j.Lat(), j.Lng()) > radiusKm {
			continue
		}
		if filters.Category != "" && j.Category != filters.Category {
			continue
		}
		if filters.MinSalary > 0 && j.Salary < filters.MinSalary {
			continue
		}
		if !filters.CreatedSince.IsZero() && j.CreatedAt.Before(filters.CreatedSince) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

type fakeAlertStore struct {
	alerts        map[primitive.ObjectID]*models.Alert
	refuseAdvance bool
	err           error
}

func newFakeAlertStore(alerts ...*models.Alert) *fakeAlertStore {
	store := &fakeAlertStore{alerts: make(map[primitive.ObjectID]*models.Alert)}
	for _, a := range alerts {
		store.alerts[a.ID] = a
	}
	return store
}

func (f *fakeAlertStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Alert, error) {
	if f.err != nil {
		return models.Alert{}, f.err
	}
	a, ok := f.alerts[id]
	if !ok {
		return models.Alert{}, mongo.ErrNoDocuments
	}
	return *a, nil
}

func (f *fakeAlertStore) ListActiveForUser(_ context.Context, userEmail string) ([]models.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Alert
	for _, a := range f.alerts {
		if a.IsActive && a.UserEmail == userEmail {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) ListActive(_ context.Context) ([]models.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Alert
	for _, a := range f.alerts {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) AdvanceLastChecked(_ context.Context, id primitive.ObjectID, observed, next time.Time) (bool, error) {
	if f.refuseAdvance {
		return false, nil
	}
	a, ok := f.alerts[id]
	if !ok || !a.LastChecked.Equal(observed) {
		return false, nil
	}
	a.LastChecked = next
	return true, nil
}

type fakeNotificationStore struct {
	appended []models.Notification
	err      error
}

func (f *fakeNotificationStore) Append(_ context.Context, n models.Notification) (models.Notification, error) {
	if f.err != nil {
		return models.Notification{}, f.err
	}
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	f.appended = append(f.appended, n)
	return n, nil
}

func sfJob(lat, lng float64, salary int, company string, createdAt time.Time) models.JobPosting {
	return models.JobPosting{
		ID:          primitive.NewObjectID(),
		Title:       "Software Engineer",
		Company:     company,
		Location:    "San Francisco",
		Coordinates: []float64{lng, lat},
		Salary:      salary,
		Category:    models.CategorySoftware,
		CreatedAt:   createdAt,
	}
}

func geofenceAlert(lastChecked time.Time) *models.Alert {
	return &models.Alert{
		ID:          primitive.NewObjectID(),
		UserEmail:   "dev@example.com",
		AlertName:   "SF geofence",
		AlertType:   models.AlertTypeGeofence,
		CenterLat:   37.7749,
		CenterLng:   -122.4194,
		RadiusKm:    25,
		LastChecked: lastChecked,
		IsActive:    true,
	}
}

// ── Geofence evaluation ────────────────────────────────────────────────────

func TestEvaluateGeofence_MatchThenQuietSecondRun(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)

	// One posting 0.05 degrees north of the center, created just after t0.
	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.8249, -122.4194, 120000, "TechCorp", t0.Add(time.Second)),
	}}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	result, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}
	if result.MatchCount != 1 {
		t.Errorf("MatchCount = %d, want 1", result.MatchCount)
	}
	if !result.NotificationCreated {
		t.Error("expected a notification to be created")
	}
	if len(notifications.appended) != 1 {
		t.Fatalf("appended %d notifications, want 1", len(notifications.appended))
	}

	n := notifications.appended[0]
	if n.Type != models.NotificationTypeNewJobs {
		t.Errorf("notification type = %q, want %q", n.Type, models.NotificationTypeNewJobs)
	}
	data, ok := n.Data.(models.NewJobsData)
	if !ok {
		t.Fatalf("notification data has type %T, want NewJobsData", n.Data)
	}
	if data.JobCount != 1 {
		t.Errorf("notification jobCount = %d, want 1", data.JobCount)
	}

	if alert.LastChecked.Before(t0.Add(time.Second)) {
		t.Errorf("lastChecked = %v, want >= %v", alert.LastChecked, t0.Add(time.Second))
	}

	// Second run with no new postings: empty match set, no new notification.
	result, err = engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("second Evaluate returned unexpected error: %v", err)
	}
	if result.MatchCount != 0 {
		t.Errorf("second run MatchCount = %d, want 0", result.MatchCount)
	}
	if result.NotificationCreated {
		t.Error("second run should not create a notification")
	}
	if len(notifications.appended) != 1 {
		t.Errorf("appended %d notifications after second run, want 1", len(notifications.appended))
	}
}

func TestEvaluateGeofence_MatchingIsNonDestructive(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)

	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 110000, "DataFlow", t0.Add(time.Minute)),
		sfJob(37.7700, -122.4300, 130000, "CloudSys", t0.Add(2 * time.Minute)),
	}}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	first, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}

	// Reset the cutoff: the same postings must match again. Evaluating reads,
	// it never consumes.
	alert.LastChecked = t0
	second, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("second Evaluate returned unexpected error: %v", err)
	}
	if first.MatchCount != 2 || second.MatchCount != 2 {
		t.Errorf("match counts = %d, %d; want 2, 2", first.MatchCount, second.MatchCount)
	}
}

func TestEvaluateGeofence_FiltersNarrowMatches(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)
	alert.Category = models.CategoryDataScience
	alert.MinSalary = 120000

	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 150000, "AILabs", t0.Add(time.Minute)),
		func() models.JobPosting {
			j := sfJob(37.7810, -122.4110, 150000, "AILabs", t0.Add(time.Minute))
			j.Category = models.CategoryDataScience
			return j
		}(),
		func() models.JobPosting {
			j := sfJob(37.7820, -122.4120, 90000, "AILabs", t0.Add(time.Minute))
			j.Category = models.CategoryDataScience
			return j
		}(),
	}}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	result, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}
	if result.MatchCount != 1 {
		t.Errorf("MatchCount = %d, want 1 (category and salary filters)", result.MatchCount)
	}
}

// ── Failure semantics ──────────────────────────────────────────────────────

func TestEvaluate_TransientFailureHasNoSideEffects(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)

	jobs := &fakeJobStore{err: context.DeadlineExceeded}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	_, err := engine.Evaluate(context.Background(), alert.ID)
	if err == nil {
		t.Fatal("expected an error when the job store is unreachable")
	}
	if !services.IsTransient(err) {
		t.Errorf("error %v should be transient", err)
	}
	if !alert.LastChecked.Equal(t0) {
		t.Errorf("lastChecked moved to %v on a failed evaluation", alert.LastChecked)
	}
	if len(notifications.appended) != 0 {
		t.Errorf("appended %d notifications on a failed evaluation, want 0", len(notifications.appended))
	}
}

func TestEvaluate_LostClaimSkipsNotification(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)

	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 110000, "DataFlow", t0.Add(time.Minute)),
	}}
	alerts := newFakeAlertStore(alert)
	alerts.refuseAdvance = true
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	result, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}
	if result.NotificationCreated || len(notifications.appended) != 0 {
		t.Error("a lost cutoff claim must not produce a notification")
	}
}

// slowJobStore delays the query and records when it returned, to pin down
// where the new cutoff is taken relative to the query.
type slowJobStore struct {
	inner     fakeJobStore
	delay     time.Duration
	queryDone time.Time
}

func (s *slowJobStore) FindWithinRadius(ctx context.Context, lat, lng, radiusKm float64, filters models.JobFilters) ([]models.JobPosting, error) {
	time.Sleep(s.delay)
	jobs, err := s.inner.FindWithinRadius(ctx, lat, lng, radiusKm, filters)
	s.queryDone = time.Now()
	return jobs, err
}

func TestEvaluate_CutoffTakenAfterMatchQuery(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)

	jobs := &slowJobStore{
		inner: fakeJobStore{jobs: []models.JobPosting{
			sfJob(37.7800, -122.4100, 110000, "DataFlow", t0.Add(time.Minute)),
		}},
		delay: 20 * time.Millisecond,
	}
	alerts := newFakeAlertStore(alert)
	engine := services.NewAlertEngine(jobs, alerts, &fakeNotificationStore{}, nil)

	if _, err := engine.Evaluate(context.Background(), alert.ID); err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}

	// A posting stamped while the query ran must not land on both sides of
	// the cutoff, so the cutoff cannot predate the query's return.
	if alert.LastChecked.Before(jobs.queryDone) {
		t.Errorf("lastChecked = %v predates the match query's return at %v", alert.LastChecked, jobs.queryDone)
	}
}

func TestEvaluate_UnknownAlertID(t *testing.T) {
	engine := services.NewAlertEngine(&fakeJobStore{}, newFakeAlertStore(), &fakeNotificationStore{}, nil)

	_, err := engine.Evaluate(context.Background(), primitive.NewObjectID())
	if err != services.ErrAlertNotFound {
		t.Errorf("error = %v, want ErrAlertNotFound", err)
	}
}

func TestEvaluate_InactiveAlert(t *testing.T) {
	alert := geofenceAlert(time.Now())
	alert.IsActive = false
	engine := services.NewAlertEngine(&fakeJobStore{}, newFakeAlertStore(alert), &fakeNotificationStore{}, nil)

	_, err := engine.Evaluate(context.Background(), alert.ID)
	if err != services.ErrAlertInactive {
		t.Errorf("error = %v, want ErrAlertInactive", err)
	}
}

func TestEvaluate_MalformedAlert(t *testing.T) {
	alert := geofenceAlert(time.Now())
	alert.RadiusKm = 0
	engine := services.NewAlertEngine(&fakeJobStore{}, newFakeAlertStore(alert), &fakeNotificationStore{}, nil)

	_, err := engine.Evaluate(context.Background(), alert.ID)
	if err == nil {
		t.Fatal("expected a configuration error for a non-positive radius")
	}
	var configErr *services.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("error %v should be a ConfigError", err)
	}
	if services.IsTransient(err) {
		t.Error("configuration errors must not be retried as transient")
	}
}

// ── Salary alerts ──────────────────────────────────────────────────────────

func TestEvaluateSalary_TargetCrossing(t *testing.T) {
	recent := time.Now().Add(-time.Hour)
	alert := &models.Alert{
		ID:           primitive.NewObjectID(),
		UserEmail:    "dev@example.com",
		AlertName:    "SF salary watch",
		AlertType:    models.AlertTypeSalaryIncrease,
		CenterLat:    37.7749,
		CenterLng:    -122.4194,
		RadiusKm:     25,
		TargetSalary: 150000,
		LastChecked:  time.Now().Add(-24 * time.Hour),
		IsActive:     true,
	}

	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 100000, "TechCorp", recent),
		sfJob(37.7700, -122.4300, 120000, "DataFlow", recent),
	}}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	// Mean 110000, below the 150000 target: no notification.
	result, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}
	if result.NotificationCreated || len(notifications.appended) != 0 {
		t.Fatal("mean below target must not notify")
	}

	// A third high posting pushes the mean to ~156667.
	jobs.jobs = append(jobs.jobs, sfJob(37.7750, -122.4200, 250000, "AILabs", recent))

	result, err = engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}
	if !result.NotificationCreated {
		t.Fatal("mean above target should notify")
	}
	data, ok := notifications.appended[0].Data.(models.SalaryIncreaseData)
	if !ok {
		t.Fatalf("notification data has type %T, want SalaryIncreaseData", notifications.appended[0].Data)
	}
	if math.Abs(data.MeanSalary-156666.67) > 1 {
		t.Errorf("mean salary = %.2f, want ~156666.67", data.MeanSalary)
	}
	if data.JobCount != 3 {
		t.Errorf("jobCount = %d, want 3", data.JobCount)
	}
}

func TestEvaluateSalary_EmptyWindowIsNoOp(t *testing.T) {
	alert := &models.Alert{
		ID:           primitive.NewObjectID(),
		UserEmail:    "dev@example.com",
		AlertName:    "quiet market",
		AlertType:    models.AlertTypeSalaryIncrease,
		CenterLat:    37.7749,
		CenterLng:    -122.4194,
		RadiusKm:     25,
		TargetSalary: 150000,
		LastChecked:  time.Now().Add(-24 * time.Hour),
		IsActive:     true,
	}

	// A posting outside the 7-day trailing window is invisible to the alert.
	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 500000, "TechCorp", time.Now().Add(-8*24*time.Hour)),
	}}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	result, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("empty window must not be an error, got: %v", err)
	}
	if result.NotificationCreated || result.MatchCount != 0 {
		t.Error("empty window must produce an empty result")
	}
	// The cutoff still advances, even though this alert type ignores it for
	// its window.
	if !alert.LastChecked.After(time.Now().Add(-time.Minute)) {
		t.Errorf("lastChecked = %v, expected it to advance", alert.LastChecked)
	}
}

// ── New-company detection ──────────────────────────────────────────────────

func TestEvaluateNewCompany_AggregatesPerCompany(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	alert := geofenceAlert(t0)
	alert.AlertType = models.AlertTypeNewCompany

	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 100000, "TechCorp", t0.Add(time.Minute)),
		sfJob(37.7810, -122.4110, 110000, "TechCorp", t0.Add(2 * time.Minute)),
		sfJob(37.7820, -122.4120, 120000, "DataFlow", t0.Add(3 * time.Minute)),
	}}
	alerts := newFakeAlertStore(alert)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	result, err := engine.Evaluate(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Evaluate returned unexpected error: %v", err)
	}
	if result.MatchCount != 3 {
		t.Errorf("MatchCount = %d, want 3", result.MatchCount)
	}
	if len(notifications.appended) != 1 {
		t.Fatalf("appended %d notifications, want 1 aggregate", len(notifications.appended))
	}

	companies, ok := notifications.appended[0].Data.([]models.NewCompanyData)
	if !ok {
		t.Fatalf("notification data has type %T, want []NewCompanyData", notifications.appended[0].Data)
	}
	if len(companies) != 2 {
		t.Fatalf("aggregated %d companies, want 2", len(companies))
	}
	if companies[0].Company != "TechCorp" || companies[0].JobCount != 2 {
		t.Errorf("first company = %s/%d, want TechCorp/2", companies[0].Company, companies[0].JobCount)
	}
	if companies[1].Company != "DataFlow" || companies[1].JobCount != 1 {
		t.Errorf("second company = %s/%d, want DataFlow/1", companies[1].Company, companies[1].JobCount)
	}
}

// ── Batch evaluation ───────────────────────────────────────────────────────

func TestEvaluateAllActive_IsolatesPerAlertFailures(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	good := geofenceAlert(t0)
	bad := geofenceAlert(t0)
	bad.RadiusKm = -1 // malformed, fails validation

	jobs := &fakeJobStore{jobs: []models.JobPosting{
		sfJob(37.7800, -122.4100, 110000, "DataFlow", t0.Add(time.Minute)),
	}}
	alerts := newFakeAlertStore(good, bad)
	notifications := &fakeNotificationStore{}
	engine := services.NewAlertEngine(jobs, alerts, notifications, nil)

	results, err := engine.EvaluateAllActive(context.Background(), "dev@example.com")
	if err != nil {
		t.Fatalf("EvaluateAllActive returned unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	failed, succeeded := 0, 0
	for _, r := range results {
		if r.Err != "" {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 1 {
		t.Errorf("failed=%d succeeded=%d, want 1 and 1", failed, succeeded)
	}
}

func TestEvaluateAllActive_ExcludesDeactivatedAlerts(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	active := geofenceAlert(t0)
	inactive := geofenceAlert(t0)
	inactive.IsActive = false

	engine := services.NewAlertEngine(&fakeJobStore{}, newFakeAlertStore(active, inactive), &fakeNotificationStore{}, nil)

	results, err := engine.EvaluateAllActive(context.Background(), "dev@example.com")
	if err != nil {
		t.Fatalf("EvaluateAllActive returned unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1 (deactivated alert excluded)", len(results))
	}
	if results[0].AlertID != active.ID.Hex() {
		t.Errorf("evaluated alert %s, want the active one %s", results[0].AlertID, active.ID.Hex())
	}
}
