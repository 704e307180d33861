// Package speed derives vehicle speeds from consecutive pings of a trip and aggregates them per line
package speed

import (
	"github.com/OpenTransitTools/transitping/business/analytics/trips"
	"github.com/tidwall/geodesic"
	"sort"
	"time"
)

// metersPerSecondToKmH converts m/s to km/h
const metersPerSecondToKmH = 3.6

// Distance returns the geodesic distance in METERS between two coordinates on the WGS-84 ellipsoid
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var meters float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &meters, nil, nil)
	return meters
}

// KmH converts meters travelled in seconds to km/h. A non positive duration has a speed of zero
func KmH(meters float64, seconds int64) float64 {
	if seconds <= 0 {
		return 0
	}
	return meters / float64(seconds) * metersPerSecondToKmH
}

// Sample is the movement between two temporally adjacent pings of a trip
type Sample struct {
	Distance float64
	Seconds  int64
	KmH      float64
}

// Samples computes a Sample for each consecutive pair of pings in trip, which must already be sorted by
// recorded time. A trip with fewer than two pings has no samples
func Samples(trip *trips.Trip) []Sample {
	if len(trip.Pings) < 2 {
		return nil
	}
	samples := make([]Sample, 0, len(trip.Pings)-1)
	for i := 1; i < len(trip.Pings); i++ {
		p0 := trip.Pings[i-1]
		p1 := trip.Pings[i]
		meters := Distance(p0.Latitude, p0.Longitude, p1.Latitude, p1.Longitude)
		seconds := int64(p1.RecordedAtTime.Sub(p0.RecordedAtTime) / time.Second)
		samples = append(samples, Sample{
			Distance: meters,
			Seconds:  seconds,
			KmH:      KmH(meters, seconds),
		})
	}
	return samples
}

// Average returns the arithmetic mean speed of samples, zero when there are none
func Average(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range samples {
		total += s.KmH
	}
	return total / float64(len(samples))
}

// VehicleAverages returns the average speed of each trip keyed by vehicle journey identifier
func VehicleAverages(tripList []*trips.Trip) map[string]float64 {
	averages := make(map[string]float64, len(tripList))
	for _, trip := range tripList {
		averages[trip.VehicleJourneyRef] = Average(Samples(trip))
	}
	return averages
}

// LineSpeed is the mean of per vehicle average speeds for one line within one region
type LineSpeed struct {
	Region   int     `json:"region"`
	Line     string  `json:"line"`
	Vehicles int     `json:"vehicles"`
	KmH      float64 `json:"kmh"`
}

// LineAverages aggregates the vehicle averages of tripList by line name for the region at regionIndex.
// results are sorted by line name
func LineAverages(regionIndex int, tripList []*trips.Trip) []LineSpeed {
	type accumulator struct {
		total    float64
		vehicles int
	}
	byLine := make(map[string]*accumulator)
	for _, trip := range tripList {
		line := trip.LineName()
		acc, present := byLine[line]
		if !present {
			acc = &accumulator{}
			byLine[line] = acc
		}
		acc.total += Average(Samples(trip))
		acc.vehicles++
	}

	results := make([]LineSpeed, 0, len(byLine))
	for line, acc := range byLine {
		results = append(results, LineSpeed{
			Region:   regionIndex,
			Line:     line,
			Vehicles: acc.vehicles,
			KmH:      acc.total / float64(acc.vehicles),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Line < results[j].Line
	})
	return results
}
