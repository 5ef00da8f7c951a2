// models/tech_hub.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// GeoPolygon is a GeoJSON Polygon: the first element is the outer ring of
// [lng, lat] pairs, closed.
type GeoPolygon struct {
	Type        string        `json:"type" bson:"type"`
	Coordinates [][][]float64 `json:"coordinates" bson:"coordinates"`
}

// TechHub is a named tech-hub region with its expected market salary, used by
// the hub overlap analysis. Hubs are reference data loaded into the
// `tech_hubs` collection; nothing in this service writes them.
type TechHub struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	Geometry   GeoPolygon         `json:"geometry" bson:"geometry"`
	AvgSalary  int                `json:"avgSalary" bson:"avg_salary"`
	JobDensity string             `json:"jobDensity" bson:"job_density"`
}

// Ring returns the hub's outer ring, or nil when the geometry is empty.
func (h *TechHub) Ring() [][]float64 {
	if len(h.Geometry.Coordinates) == 0 {
		return nil
	}
	return h.Geometry.Coordinates[0]
}
