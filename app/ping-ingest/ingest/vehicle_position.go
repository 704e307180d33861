package ingest

import (
	"bytes"
	"context"
	"fmt"
	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/transitping/foundation/httpclient"
	"google.golang.org/protobuf/proto"
	"log"
	"strconv"
	"time"
)

//vehiclePosition contains fields read from a GTFS-RT vehicle positions feed.
//fields that are optional are pointers and will be nil if they were not present in the feed
type vehiclePosition struct {
	Id          string
	Timestamp   int64
	TripId      string
	StartDate   *string
	RouteId     *string
	DirectionId *uint32
	Latitude    float32
	Longitude   float32
	Bearing     *float32
}

//journeyRef identifies the vehicle journey the position belongs to.
//trip ids repeat every service day so the start date is appended when present
func (v *vehiclePosition) journeyRef() string {
	if v.StartDate == nil || len(*v.StartDate) == 0 {
		return v.TripId
	}
	return v.TripId + "_" + *v.StartDate
}

//recordedAt returns the time the position was recorded
func (v *vehiclePosition) recordedAt() time.Time {
	return time.Unix(v.Timestamp, 0).UTC()
}

//String implements Stringer interface for vehiclePosition
func (v *vehiclePosition) String() string {
	var buffer bytes.Buffer
	buffer.WriteString("vehiclePosition{ id:")
	buffer.WriteString(v.Id)
	buffer.WriteString(", journey:")
	buffer.WriteString(v.journeyRef())
	buffer.WriteString(", route:")
	if v.RouteId == nil {
		buffer.WriteString("unknown")
	} else {
		buffer.WriteString(*v.RouteId)
	}
	buffer.WriteString(", Timestamp: ")
	buffer.WriteString(strconv.FormatInt(v.Timestamp, 10))
	buffer.WriteString(" }")
	return buffer.String()
}

/*
getVehiclePositions Retrieves gtfs-realtime vehicle positions and loads them into a non-protocol buffer object.
Any changes to the GTFS-realtime protocol or bindings can be handled here and not elsewhere in the program.
*/
func getVehiclePositions(ctx context.Context,
	log *log.Logger,
	client *httpclient.Client,
	url string) ([]vehiclePosition, error) {
	gtfsResponseBytes, err := client.RetrieveBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return decodeVehiclePositions(log, gtfsResponseBytes, time.Now())
}

//decodeVehiclePositions unmarshals a FeedMessage and maps its vehicle entities.
//entities missing a vehicle id, trip id or position are skipped. fetchedAt is used when a vehicle has no timestamp
func decodeVehiclePositions(log *log.Logger, data []byte, fetchedAt time.Time) ([]vehiclePosition, error) {
	feedMessage := gtfsrt.FeedMessage{}
	err := proto.Unmarshal(data, &feedMessage)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal FeedMessage: %w", err)
	}
	var vehiclePositions []vehiclePosition
	now := fetchedAt.Unix()
	for _, entity := range feedMessage.Entity {
		vehicle := entity.GetVehicle()
		if vehicle == nil {
			continue
		}
		vehicleDescriptor := vehicle.GetVehicle()
		if vehicleDescriptor == nil || vehicleDescriptor.Id == nil {
			log.Printf("Vehicle entity missing vehicle identifier, %s\n", entity.GetId())
			continue
		}
		trip := vehicle.GetTrip()
		if trip == nil || trip.TripId == nil {
			log.Printf("Vehicle %s missing trip identifier, entity %s\n", *vehicleDescriptor.Id, entity.GetId())
			continue
		}
		vehPos := vehicle.GetPosition()
		if vehPos == nil {
			log.Printf("Vehicle %s missing position, entity %s\n", *vehicleDescriptor.Id, entity.GetId())
			continue
		}

		position := vehiclePosition{
			Id:          *vehicleDescriptor.Id,
			TripId:      *trip.TripId,
			StartDate:   trip.StartDate,
			RouteId:     trip.RouteId,
			DirectionId: trip.DirectionId,
			Latitude:    vehPos.GetLatitude(),
			Longitude:   vehPos.GetLongitude(),
			Bearing:     vehPos.Bearing,
		}
		if vehicle.Timestamp != nil {
			position.Timestamp = int64(*vehicle.Timestamp)
		} else {
			position.Timestamp = now
		}

		vehiclePositions = append(vehiclePositions, position)
	}
	return vehiclePositions, nil
}
