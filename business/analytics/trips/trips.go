// Package trips reconstructs per vehicle journey trips from unordered pings
package trips

import (
	"github.com/OpenTransitTools/transitping/business/data/ping"
	"sort"
	"time"
)

// Trip contains every ping sharing a vehicle journey identifier
type Trip struct {
	VehicleJourneyRef string
	Pings             []ping.Ping
	// First and Last are the earliest and latest recorded times seen across all added pings
	First time.Time
	Last  time.Time
	// sorted is false after a ping has been added and until the builder orders Pings
	sorted bool
}

// LineName returns the published line name of the trip's first ping
func (t *Trip) LineName() string {
	if len(t.Pings) == 0 {
		return ""
	}
	return t.Pings[0].PublishedLineName
}

// Builder accumulates pings from one or more region queries into Trips.
// a Builder belongs to a single request and is not safe for concurrent use
type Builder struct {
	tripsByJourney map[string]*Trip
	order          []*Trip
}

// NewBuilder creates an empty Builder
func NewBuilder() *Builder {
	return &Builder{
		tripsByJourney: make(map[string]*Trip),
	}
}

// Add assigns p to the trip for its vehicle journey, creating the trip if this is the first ping seen for it
func (b *Builder) Add(p ping.Ping) {
	trip, present := b.tripsByJourney[p.DatedVehicleJourneyRef]
	if !present {
		trip = &Trip{
			VehicleJourneyRef: p.DatedVehicleJourneyRef,
			First:             p.RecordedAtTime,
			Last:              p.RecordedAtTime,
		}
		b.tripsByJourney[p.DatedVehicleJourneyRef] = trip
		b.order = append(b.order, trip)
	} else {
		if p.RecordedAtTime.Before(trip.First) {
			trip.First = p.RecordedAtTime
		}
		if p.RecordedAtTime.After(trip.Last) {
			trip.Last = p.RecordedAtTime
		}
	}
	trip.Pings = append(trip.Pings, p)
	trip.sorted = false
}

// AddRecords converts and adds each record. Records that fail validation are skipped and their errors
// returned so the caller can report them
func (b *Builder) AddRecords(records []ping.Record) []error {
	var malformed []error
	for i := range records {
		p, err := records[i].Ping()
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		b.Add(p)
	}
	return malformed
}

// Len returns the number of trips seen so far
func (b *Builder) Len() int {
	return len(b.order)
}

// Trips returns all trips in the order their vehicle journey was first seen, each with pings sorted by
// recorded time. Pings with equal times keep the order they were added in
func (b *Builder) Trips() []*Trip {
	for _, trip := range b.order {
		if !trip.sorted {
			pings := trip.Pings
			sort.SliceStable(pings, func(i, j int) bool {
				return pings[i].RecordedAtTime.Before(pings[j].RecordedAtTime)
			})
			trip.sorted = true
		}
	}
	return b.order
}
