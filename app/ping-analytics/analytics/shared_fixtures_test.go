package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	logger "log"
	"strings"
	"sync"
	"time"

	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/business/analytics/region"
	"github.com/OpenTransitTools/transitping/business/data/ping"
)

var fixtureTime = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// fakeStore answers region queries from records keyed by the region's geometry
type fakeStore struct {
	mu           sync.Mutex
	byGeometry   map[string][]ping.Record
	failGeometry map[string]error
	delay        map[string]time.Duration
	calls        []string
	clauses      [][]filter.Clause
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byGeometry:   make(map[string][]ping.Record),
		failGeometry: make(map[string]error),
		delay:        make(map[string]time.Duration),
	}
}

func (f *fakeStore) FindWithin(ctx context.Context,
	geometry json.RawMessage,
	clauses []filter.Clause) ([]ping.Record, error) {
	key := string(geometry)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.clauses = append(f.clauses, clauses)
	delay := f.delay[key]
	records := f.byGeometry[key]
	err := f.failGeometry[key]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

// regionGeometry returns a distinct geometry for region index i
func regionGeometry(i int) string {
	return fmt.Sprintf(`{"type":"Polygon","coordinates":[[[%d,0],[%d,1],[%d,1],[%d,0]]]}`, i, i, i+1, i+1)
}

func regionFeature(i int) region.Feature {
	return region.Feature{
		Type:       "Feature",
		Properties: json.RawMessage(`{}`),
		Geometry:   json.RawMessage(regionGeometry(i)),
	}
}

func makeRecord(journey string, line string, lat float64, lon float64, offsetSeconds int) ping.Record {
	recorded := fixtureTime.Add(time.Duration(offsetSeconds) * time.Second)
	origin := "A"
	destination := "B"
	vehicle := "V-" + journey
	return ping.Record{
		OriginRef:              &origin,
		Latitude:               &lat,
		Longitude:              &lon,
		VehicleRef:             &vehicle,
		DestinationName:        &destination,
		RecordedAtTime:         &recorded,
		PublishedLineName:      &line,
		DatedVehicleJourneyRef: &journey,
	}
}

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func anyFilter() filter.Request {
	return filter.Request{
		StartHour: intPtr(filter.Unset),
		EndHour:   intPtr(filter.Unset),
		DayOfWeek: intPtr(filter.Unset),
		Month:     intPtr(filter.Unset),
		Year:      intPtr(filter.Unset),
		Lines:     stringPtr(""),
	}
}

func makeAnalyticRequest(regionCount int) *analyticRequest {
	req := &analyticRequest{Request: anyFilter()}
	req.Path = &struct {
		Features []region.Feature `json:"features"`
	}{Features: []region.Feature{}}
	for i := 0; i < regionCount; i++ {
		req.Path.Features = append(req.Path.Features, regionFeature(i))
	}
	return req
}

// requestBody renders a json body for regionCount regions, extra is inserted into the top level object
func requestBody(regionCount int, extra string) io.Reader {
	var features []string
	for i := 0; i < regionCount; i++ {
		features = append(features,
			fmt.Sprintf(`{"type":"Feature","properties":{"name":"r%d"},"geometry":%s}`, i, regionGeometry(i)))
	}
	body := `{"startHour":-1,"endHour":-1,"dayOfWeek":-1,"month":-1,"year":-1,"lines":""`
	if len(extra) > 0 {
		body += "," + extra
	}
	body += `,"path":{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}}`
	return strings.NewReader(body)
}

func discardLogger() *logger.Logger {
	return logger.New(io.Discard, "", 0)
}
