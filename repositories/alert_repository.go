package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jobatlas/jobatlas_backend/config"
	"github.com/jobatlas/jobatlas_backend/models"
)

type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(db *mongo.Client) *AlertRepository {
	return &AlertRepository{
		collection: config.GetCollection(db, "alerts"),
	}
}

// Create inserts a new alert with createdAt and lastChecked stamped to now,
// so the first evaluation only sees postings created after the alert existed.
func (r *AlertRepository) Create(ctx context.Context, alert models.Alert) (models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	alert.ID = primitive.NewObjectID()
	alert.CreatedAt = now
	alert.LastChecked = now
	alert.IsActive = true

	_, err := r.collection.InsertOne(ctx, alert)
	if err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

// GetByID fetches one alert regardless of its active flag.
func (r *AlertRepository) GetByID(ctx context.Context, id primitive.ObjectID) (models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var alert models.Alert
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

// ListActiveForUser returns the user's active alerts, newest first.
// Deactivated alerts never appear here.
func (r *AlertRepository) ListActiveForUser(ctx context.Context, userEmail string) ([]models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"userEmail": userEmail, "isActive": true}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []models.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListActive returns every active alert across all users, for the scheduled
// batch sweep.
func (r *AlertRepository) ListActive(ctx context.Context) ([]models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []models.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Deactivate flips isActive to false. The record is retained; nothing in this
// codebase flips it back.
func (r *AlertRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AdvanceLastChecked moves the alert's cutoff from observed to next with a
// compare-and-swap: the update only applies if lastChecked still holds the
// value this evaluator read. Returns true when the swap won. A lost swap
// means a concurrent evaluation already claimed the window.
func (r *AlertRepository) AdvanceLastChecked(ctx context.Context, id primitive.ObjectID, observed, next time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "lastChecked": observed},
		bson.M{"$set": bson.M{"lastChecked": next}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}
