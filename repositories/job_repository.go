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
	"github.com/jobatlas/jobatlas_backend/utils"
)

// maxNearestDistanceMeters caps $near queries at 100km.
const maxNearestDistanceMeters = 100000

type JobRepository struct {
	collection *mongo.Collection
}

func NewJobRepository(db *mongo.Client) *JobRepository {
	return &JobRepository{
		collection: config.GetCollection(db, "jobs"),
	}
}

// FindWithinRadius returns postings whose coordinates lie within radiusKm of
// (lat, lng), great-circle on Earth's mean radius, boundary inclusive.
// Filters narrow the result by category, salary floor and creation cutoff.
func (r *JobRepository) FindWithinRadius(ctx context.Context, lat, lng, radiusKm float64, filters models.JobFilters) ([]models.JobPosting, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{
		"coordinates": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, radiusKm / utils.EarthRadiusKm},
			},
		},
	}
	applyFilters(query, filters)

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.JobPosting
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindWithinPolygon returns postings inside the polygon given as a ring of
// [lng, lat] pairs. Containment is planar; not valid across the antimeridian
// or poles.
func (r *JobRepository) FindWithinPolygon(ctx context.Context, ring [][]float64) ([]models.JobPosting, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{
		"coordinates": bson.M{
			"$geoWithin": bson.M{
				"$geometry": bson.M{
					"type":        "Polygon",
					"coordinates": bson.A{ring},
				},
			},
		},
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.JobPosting
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindNearest returns up to limit postings ordered by ascending distance from
// (lat, lng), within 100km.
func (r *JobRepository) FindNearest(ctx context.Context, lat, lng float64, limit int64) ([]models.JobPosting, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{
		"coordinates": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": bson.A{lng, lat},
				},
				"$maxDistance": maxNearestDistanceMeters,
			},
		},
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.JobPosting
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Insert stores a new posting, stamping created_at server-side. Postings are
// immutable once inserted.
func (r *JobRepository) Insert(ctx context.Context, job models.JobPosting) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	job.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, job)
	if err != nil {
		return "", err
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	return oid.Hex(), nil
}

// CountWithinRadius counts postings within radiusKm of (lat, lng), used for
// density analytics.
func (r *JobRepository) CountWithinRadius(ctx context.Context, lat, lng, radiusKm float64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{
		"coordinates": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, radiusKm / utils.EarthRadiusKm},
			},
		},
	}
	return r.collection.CountDocuments(ctx, query)
}

// ListAll returns every posting; used by the stats endpoint.
func (r *JobRepository) ListAll(ctx context.Context) ([]models.JobPosting, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.JobPosting
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// applyFilters adds the optional scalar predicates to a jobs query. Zero
// values mean the predicate is absent.
func applyFilters(query bson.M, filters models.JobFilters) {
	if filters.Category != "" {
		query["category"] = filters.Category
	}
	if filters.MinSalary > 0 {
		query["salary"] = bson.M{"$gte": filters.MinSalary}
	}
	if !filters.CreatedSince.IsZero() {
		query["created_at"] = bson.M{"$gte": filters.CreatedSince}
	}
}
