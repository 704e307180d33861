package ingest

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/transitping/foundation/httpclient"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func vehicleEntity(entityId string, vehicleId string, tripId string, timestamp uint64) *gtfsrt.FeedEntity {
	entity := &gtfsrt.FeedEntity{
		Id: proto.String(entityId),
		Vehicle: &gtfsrt.VehiclePosition{
			Trip: &gtfsrt.TripDescriptor{
				TripId:      proto.String(tripId),
				RouteId:     proto.String("100"),
				DirectionId: proto.Uint32(1),
				StartDate:   proto.String("20240704"),
			},
			Vehicle: &gtfsrt.VehicleDescriptor{
				Id: proto.String(vehicleId),
			},
			Position: &gtfsrt.Position{
				Latitude:  proto.Float32(45.5),
				Longitude: proto.Float32(-122.75),
				Bearing:   proto.Float32(90),
			},
		},
	}
	if timestamp > 0 {
		entity.Vehicle.Timestamp = proto.Uint64(timestamp)
	}
	return entity
}

func marshalFeed(t *testing.T, entities ...*gtfsrt.FeedEntity) []byte {
	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1720094400),
		},
		Entity: entities,
	}
	data, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("marshalling feed: %v", err)
	}
	return data
}

func Test_decodeVehiclePositions(t *testing.T) {
	is := is.New(t)

	noVehicleId := vehicleEntity("2", "", "T2", 1720094400)
	noVehicleId.Vehicle.Vehicle.Id = nil
	noTrip := vehicleEntity("3", "V3", "T3", 1720094400)
	noTrip.Vehicle.Trip = nil
	noPosition := vehicleEntity("4", "V4", "T4", 1720094400)
	noPosition.Vehicle.Position = nil
	alert := &gtfsrt.FeedEntity{Id: proto.String("5")}
	noTimestamp := vehicleEntity("6", "V6", "T6", 0)
	noStartDate := vehicleEntity("7", "V7", "T7", 1720094410)
	noStartDate.Vehicle.Trip.StartDate = nil

	data := marshalFeed(t,
		vehicleEntity("1", "V1", "T1", 1720094400),
		noVehicleId, noTrip, noPosition, alert, noTimestamp, noStartDate)

	fetchedAt := time.Unix(1720094500, 0)
	positions, err := decodeVehiclePositions(discardLogger(), data, fetchedAt)
	is.NoErr(err)
	is.Equal(len(positions), 3)

	first := positions[0]
	is.Equal(first.Id, "V1")
	is.Equal(first.journeyRef(), "T1_20240704")
	is.Equal(*first.RouteId, "100")
	is.Equal(*first.DirectionId, uint32(1))
	is.Equal(first.Latitude, float32(45.5))
	is.Equal(first.Longitude, float32(-122.75))
	is.Equal(*first.Bearing, float32(90))
	is.Equal(first.Timestamp, int64(1720094400))

	is.Equal(positions[1].Id, "V6")
	is.Equal(positions[1].Timestamp, fetchedAt.Unix()) // falls back to fetch time

	is.Equal(positions[2].journeyRef(), "T7")
}

func Test_decodeVehiclePositions_garbage(t *testing.T) {
	is := is.New(t)
	_, err := decodeVehiclePositions(discardLogger(), []byte{0xff, 0xff, 0xff}, time.Now())
	is.True(err != nil)
}

func Test_getVehiclePositions(t *testing.T) {
	is := is.New(t)
	data := marshalFeed(t, vehicleEntity("1", "V1", "T1", 1720094400))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	positions, err := getVehiclePositions(context.Background(), discardLogger(),
		httpclient.NewClient(time.Second*5), server.URL)
	is.NoErr(err)
	is.Equal(len(positions), 1)
	is.Equal(positions[0].Id, "V1")
}
