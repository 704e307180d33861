// Package ping provides the vehicle position ping model and its point store
package ping

import (
	"fmt"
	"strings"
	"time"
)

// Record contains a vehicle position row as returned by the point store.
// every column may be absent, so fields are pointers and will be nil when the column was null
type Record struct {
	OriginRef              *string    `db:"origin_ref" json:"origin_ref"`
	Bearing                *float64   `db:"bearing" json:"bearing"`
	Latitude               *float64   `db:"latitude" json:"latitude"`
	Longitude              *float64   `db:"longitude" json:"longitude"`
	VehicleRef             *string    `db:"vehicle_ref" json:"vehicle_ref"`
	DestinationName        *string    `db:"destination_name" json:"destination_name"`
	JourneyPatternRef      *string    `db:"journey_pattern_ref" json:"journey_pattern_ref"`
	RecordedAtTime         *time.Time `db:"recorded_at_time" json:"recorded_at_time"`
	LineRef                *string    `db:"line_ref" json:"line_ref"`
	PublishedLineName      *string    `db:"published_line_name" json:"published_line_name"`
	DatedVehicleJourneyRef *string    `db:"dated_vehicle_journey_ref" json:"dated_vehicle_journey_ref"`
	DirectionRef           *string    `db:"direction_ref" json:"direction_ref"`
}

// Ping is one validated vehicle position observation
type Ping struct {
	OriginRef         string
	Bearing           float64
	Latitude          float64
	Longitude         float64
	VehicleRef        string
	DestinationName   string
	JourneyPatternRef string
	// RecordedAtTime is always in UTC
	RecordedAtTime time.Time
	LineRef        string
	// PublishedLineName is the line name riders see, used for line filters and aggregation
	PublishedLineName string
	// DatedVehicleJourneyRef identifies a single trip instance
	DatedVehicleJourneyRef string
	DirectionRef           string
}

// MalformedRecordError is returned when a Record is missing fields required to build a Ping
type MalformedRecordError struct {
	VehicleJourneyRef string
	MissingFields     []string
}

func (m *MalformedRecordError) Error() string {
	journey := m.VehicleJourneyRef
	if len(journey) == 0 {
		journey = "unknown"
	}
	return fmt.Sprintf("malformed ping record for vehicle journey %s, missing fields:[%s]",
		journey, strings.Join(m.MissingFields, ","))
}

// Ping validates r and converts it to a Ping.
// returns *MalformedRecordError listing every missing required field
func (r *Record) Ping() (Ping, error) {
	var missing []string
	if r.DatedVehicleJourneyRef == nil || len(*r.DatedVehicleJourneyRef) == 0 {
		missing = append(missing, "dated_vehicle_journey_ref")
	}
	if r.Latitude == nil {
		missing = append(missing, "latitude")
	}
	if r.Longitude == nil {
		missing = append(missing, "longitude")
	}
	if r.RecordedAtTime == nil {
		missing = append(missing, "recorded_at_time")
	}
	if r.PublishedLineName == nil {
		missing = append(missing, "published_line_name")
	}
	if len(missing) > 0 {
		return Ping{}, &MalformedRecordError{
			VehicleJourneyRef: stringValue(r.DatedVehicleJourneyRef),
			MissingFields:     missing,
		}
	}
	return Ping{
		OriginRef:              stringValue(r.OriginRef),
		Bearing:                floatValue(r.Bearing),
		Latitude:               *r.Latitude,
		Longitude:              *r.Longitude,
		VehicleRef:             stringValue(r.VehicleRef),
		DestinationName:        stringValue(r.DestinationName),
		JourneyPatternRef:      stringValue(r.JourneyPatternRef),
		RecordedAtTime:         r.RecordedAtTime.UTC(),
		LineRef:                stringValue(r.LineRef),
		PublishedLineName:      *r.PublishedLineName,
		DatedVehicleJourneyRef: *r.DatedVehicleJourneyRef,
		DirectionRef:           stringValue(r.DirectionRef),
	}, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatValue(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
