// Package region adapts user drawn region features into point store queries
package region

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/business/data/ping"
)

// Feature is a GeoJSON Feature describing one region polygon
type Feature struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// PointStore retrieves ping records located within a GeoJSON geometry and matching all clauses.
// results carry no ordering guarantee and may be empty
type PointStore interface {
	FindWithin(ctx context.Context, geometry json.RawMessage, clauses []filter.Clause) ([]ping.Record, error)
}

// StoreQueryError is returned when the point store fails to answer a region query
type StoreQueryError struct {
	Region int
	Err    error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("point store query for region %d failed: %v", e.Region, e.Err)
}

func (e *StoreQueryError) Unwrap() error {
	return e.Err
}

// Query retrieves raw ping records within feature's geometry that satisfy clauses.
// Only the geometry is handed to store; feature type and properties are dropped.
// clauses are copied so store implementations can't alter the caller's list between regions
func Query(ctx context.Context,
	store PointStore,
	index int,
	feature Feature,
	clauses []filter.Clause) ([]ping.Record, error) {

	geometry := bytes.TrimSpace(feature.Geometry)
	if len(geometry) == 0 || bytes.Equal(geometry, []byte("null")) {
		return nil, &filter.InvalidFilterError{
			Field:  fmt.Sprintf("path.features[%d].geometry", index),
			Reason: "required field is missing",
		}
	}

	regionClauses := make([]filter.Clause, len(clauses))
	copy(regionClauses, clauses)

	records, err := store.FindWithin(ctx, json.RawMessage(geometry), regionClauses)
	if err != nil {
		return nil, &StoreQueryError{Region: index, Err: err}
	}
	return records, nil
}
