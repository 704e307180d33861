// Package export renders pings, trips and speed aggregates as delimited text records
package export

import (
	"fmt"
	"github.com/OpenTransitTools/transitping/business/analytics/speed"
	"github.com/OpenTransitTools/transitping/business/analytics/trips"
	"github.com/OpenTransitTools/transitping/business/data/ping"
	"strings"
	"time"
)

const (
	// ContentType is the media type of every export
	ContentType = "text/csv"
	// ContentDisposition suggests exports are saved rather than displayed
	ContentDisposition = "attachment; filename=export.csv"
	// TimeLayout formats recorded times, always in UTC
	TimeLayout = "2006-01-02T15:04:05"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// TripLine renders trip as vehicleId,lineName,firstPing,lastPing
func TripLine(trip *trips.Trip) string {
	return fmt.Sprintf("%s,%s,%s,%s",
		trip.VehicleJourneyRef, trip.LineName(), formatTime(trip.First), formatTime(trip.Last))
}

// PingLine renders the fixed 12 field layout of p. Field order is relied on by existing consumers:
// origin,bearing,longitude,latitude,vehicleRef,destination,journeyPattern,recordedTime,lineRef,
// publishedLineName,vehicleJourneyId,direction
func PingLine(p ping.Ping) string {
	return fmt.Sprintf("%s,%f,%f,%f,%s,%s,%s,%s,%s,%s,%s,%s",
		p.OriginRef,
		p.Bearing,
		p.Longitude,
		p.Latitude,
		p.VehicleRef,
		p.DestinationName,
		p.JourneyPatternRef,
		formatTime(p.RecordedAtTime),
		p.LineRef,
		p.PublishedLineName,
		p.DatedVehicleJourneyRef,
		p.DirectionRef)
}

// SpeedLine renders ls as regionIndex,lineName,avgSpeedKmh
func SpeedLine(ls speed.LineSpeed) string {
	return fmt.Sprintf("%d,%s,%f", ls.Region, ls.Line, ls.KmH)
}

// Join combines lines into a single export, separated by newlines
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Trips renders one TripLine per trip
func Trips(tripList []*trips.Trip) string {
	lines := make([]string, 0, len(tripList))
	for _, trip := range tripList {
		lines = append(lines, TripLine(trip))
	}
	return Join(lines)
}

// Pings renders one PingLine per ping
func Pings(pings []ping.Ping) string {
	lines := make([]string, 0, len(pings))
	for _, p := range pings {
		lines = append(lines, PingLine(p))
	}
	return Join(lines)
}

// Speeds renders one SpeedLine per aggregate
func Speeds(lineSpeeds []speed.LineSpeed) string {
	lines := make([]string, 0, len(lineSpeeds))
	for _, ls := range lineSpeeds {
		lines = append(lines, SpeedLine(ls))
	}
	return Join(lines)
}
