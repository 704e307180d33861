package region

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/business/data/ping"
	"github.com/matryer/is"
)

// recordingStore captures the arguments it receives, modifying the clause list to prove callers are isolated
type recordingStore struct {
	geometry json.RawMessage
	clauses  []filter.Clause
	records  []ping.Record
	err      error
}

func (r *recordingStore) FindWithin(_ context.Context,
	geometry json.RawMessage,
	clauses []filter.Clause) ([]ping.Record, error) {
	r.geometry = geometry
	r.clauses = append([]filter.Clause{}, clauses...)
	if len(clauses) > 0 {
		clauses[0].Low = 99
	}
	return r.records, r.err
}

func TestQuery(t *testing.T) {
	is := is.New(t)
	journey := "VJ1"
	store := &recordingStore{records: []ping.Record{{DatedVehicleJourneyRef: &journey}}}
	feature := Feature{
		Type:       "Feature",
		Properties: json.RawMessage(`{"name":"downtown"}`),
		Geometry:   json.RawMessage(` {"type":"Polygon","coordinates":[]} `),
	}
	clauses := []filter.Clause{{Field: filter.FieldMonth, Op: filter.Equals, Low: 3}}

	records, err := Query(context.Background(), store, 0, feature, clauses)
	is.NoErr(err)
	is.Equal(len(records), 1)
	is.Equal(string(store.geometry), `{"type":"Polygon","coordinates":[]}`)
	is.Equal(store.clauses, clauses)
	is.Equal(clauses[0].Low, 3) // caller's clauses untouched
}

func TestQuery_StoreFailure(t *testing.T) {
	is := is.New(t)
	cause := errors.New("connection refused")
	store := &recordingStore{err: cause}
	feature := Feature{Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)}

	_, err := Query(context.Background(), store, 2, feature, nil)
	var storeErr *StoreQueryError
	is.True(errors.As(err, &storeErr))
	is.Equal(storeErr.Region, 2)
	is.True(errors.Is(err, cause))
}

func TestQuery_MissingGeometry(t *testing.T) {
	tests := []struct {
		name     string
		geometry json.RawMessage
	}{
		{"absent", nil},
		{"null", json.RawMessage("null")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			store := &recordingStore{}
			_, err := Query(context.Background(), store, 1, Feature{Type: "Feature", Geometry: tt.geometry}, nil)
			var filterErr *filter.InvalidFilterError
			is.True(errors.As(err, &filterErr))
			is.Equal(filterErr.Field, "path.features[1].geometry")
			is.True(store.geometry == nil) // store never consulted
		})
	}
}
