package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrStoreUnavailable wraps query failures and timeouts. Evaluation aborts
	// with no side effects and the alert stays eligible for retry; callers must
	// never read it as "no matches".
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrAlertNotFound is returned when the alert id resolves to nothing.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlertInactive is returned when evaluation is requested for a
	// deactivated alert. Not retried.
	ErrAlertInactive = errors.New("alert is not active")

	// ErrNotFound is returned when geocoding a free-text address yields
	// nothing. Surfaced as a rejection of that input, not a crash.
	ErrNotFound = errors.New("location not found")
)

// ConfigError marks a malformed alert definition. Rejected at creation time;
// never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid alert configuration: " + e.Reason
}

// IsTransient reports whether err should be retried on the next trigger.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// storeErr folds a repository failure into the error taxonomy: a missing
// document is not-found, anything else is transient.
func storeErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrAlertNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
