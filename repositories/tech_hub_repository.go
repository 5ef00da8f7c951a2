package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jobatlas/jobatlas_backend/config"
	"github.com/jobatlas/jobatlas_backend/models"
)

type TechHubRepository struct {
	collection *mongo.Collection
}

func NewTechHubRepository(db *mongo.Client) *TechHubRepository {
	return &TechHubRepository{
		collection: config.GetCollection(db, "tech_hubs"),
	}
}

// ListAll returns every tech hub. The collection is small reference data, so
// there is no pagination.
func (r *TechHubRepository) ListAll(ctx context.Context) ([]models.TechHub, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hubs []models.TechHub
	if err := cursor.All(ctx, &hubs); err != nil {
		return nil, err
	}
	return hubs, nil
}
