package ingest

import (
	"context"
	"github.com/OpenTransitTools/transitping/business/data/ping"
	"github.com/jmoiron/sqlx"
	"log"
	"strconv"
	"time"
)

//pingRecorder saves pings produced from a vehicle positions feed
type pingRecorder interface {
	recordPings(ctx context.Context, pings []*ping.StoredPing) error
}

//dbRecorder implements pingRecorder for saving pings to the point store
type dbRecorder struct {
	db *sqlx.DB
}

//makeDBRecorder creates dbRecorder
func makeDBRecorder(db *sqlx.DB) *dbRecorder {
	return &dbRecorder{db: db}
}

func (d *dbRecorder) recordPings(ctx context.Context, pings []*ping.StoredPing) error {
	return ping.RecordPings(ctx, d.db, pings)
}

//positionTracker remembers the last timestamp seen for each vehicle so unchanged positions are not stored twice
type positionTracker struct {
	lastTimestamp map[string]int64
	lastSeen      map[string]time.Time
	expireAfter   time.Duration
}

func makePositionTracker(expireAfter time.Duration) *positionTracker {
	return &positionTracker{
		lastTimestamp: make(map[string]int64),
		lastSeen:      make(map[string]time.Time),
		expireAfter:   expireAfter,
	}
}

//newPositions returns the positions whose timestamp differs from the last one seen for the vehicle
func (p *positionTracker) newPositions(positions []vehiclePosition, now time.Time) []vehiclePosition {
	var results []vehiclePosition
	for _, position := range positions {
		last, present := p.lastTimestamp[position.Id]
		p.lastSeen[position.Id] = now
		if present && last == position.Timestamp {
			continue
		}
		p.lastTimestamp[position.Id] = position.Timestamp
		results = append(results, position)
	}
	return results
}

//expire forgets vehicles that haven't appeared in the feed for expireAfter
func (p *positionTracker) expire(now time.Time) int {
	removed := 0
	for id, seen := range p.lastSeen {
		if now.Sub(seen) > p.expireAfter {
			delete(p.lastSeen, id)
			delete(p.lastTimestamp, id)
			removed++
		}
	}
	return removed
}

//pingBuilder maps vehicle positions to stored pings, deriving calendar columns in the agency's time zone
type pingBuilder struct {
	location *time.Location
	holidays *transitHolidayCalendar
}

func makePingBuilder(location *time.Location) *pingBuilder {
	return &pingBuilder{
		location: location,
		holidays: makeTransitHolidayCalendar(),
	}
}

func (b *pingBuilder) storedPing(position *vehiclePosition) *ping.StoredPing {
	recorded := position.recordedAt()
	local := recorded.In(b.location)

	latitude := float64(position.Latitude)
	longitude := float64(position.Longitude)
	vehicleRef := position.Id
	journeyRef := position.journeyRef()

	stored := &ping.StoredPing{
		Record: ping.Record{
			Latitude:               &latitude,
			Longitude:              &longitude,
			VehicleRef:             &vehicleRef,
			RecordedAtTime:         &recorded,
			LineRef:                position.RouteId,
			PublishedLineName:      position.RouteId,
			DatedVehicleJourneyRef: &journeyRef,
		},
		Hour:      local.Hour(),
		DayOfWeek: int(local.Weekday()),
		Month:     int(local.Month()),
		Year:      local.Year(),
		Holiday:   b.holidays.isHoliday(local),
	}
	if position.Bearing != nil {
		bearing := float64(*position.Bearing)
		stored.Bearing = &bearing
	}
	if position.DirectionId != nil {
		direction := strconv.FormatUint(uint64(*position.DirectionId), 10)
		stored.DirectionRef = &direction
	}
	return stored
}

//storedPings maps each of positions
func (b *pingBuilder) storedPings(positions []vehiclePosition) []*ping.StoredPing {
	results := make([]*ping.StoredPing, 0, len(positions))
	for i := range positions {
		results = append(results, b.storedPing(&positions[i]))
	}
	return results
}

//recordNewPositions saves the positions not seen before, returning the number saved
func recordNewPositions(ctx context.Context,
	log *log.Logger,
	recorder pingRecorder,
	tracker *positionTracker,
	builder *pingBuilder,
	positions []vehiclePosition,
	now time.Time) int {

	fresh := tracker.newPositions(positions, now)
	if len(fresh) == 0 {
		return 0
	}
	pings := builder.storedPings(fresh)
	err := recorder.recordPings(ctx, pings)
	if err != nil {
		log.Printf("failed to record %d pings, error:%v", len(pings), err)
		// allow the positions to be recorded again on the next load
		for _, position := range fresh {
			delete(tracker.lastTimestamp, position.Id)
		}
		return 0
	}
	return len(pings)
}
