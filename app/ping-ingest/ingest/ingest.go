// Package ingest polls a gtfs-rt vehicle positions feed and stores each new position as a ping
package ingest

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/transitping/foundation/httpclient"
	"github.com/jmoiron/sqlx"
	"log"
	"os"
	"time"
)

//Conf contains the configurable parameters of the ingest loop
type Conf struct {
	VehiclePositionsUrl   string
	LoadEverySeconds      int
	ExpirePositionSeconds int
	FetchTimeout          time.Duration
	// Location is the agency time zone used to derive the calendar columns of each ping
	Location *time.Location
}

//RunIngestLoop starts loop that polls the gtfs-rt feed and records new vehicle positions as pings.
func RunIngestLoop(log *log.Logger,
	db *sqlx.DB,
	conf Conf,
	shutdownSignal chan os.Signal) error {

	loopDuration := time.Duration(conf.LoadEverySeconds) * time.Second
	expireDuration := time.Duration(conf.ExpirePositionSeconds) * time.Second

	sleepChan := make(chan bool)
	sleep := time.Duration(0) //sleep for zero seconds the first time

	client := httpclient.NewClient(conf.FetchTimeout)
	recorder := makeDBRecorder(db)
	tracker := makePositionTracker(expireDuration)
	builder := makePingBuilder(conf.Location)
	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting on shutdown signal")
			return nil
		case <-sleepChan:
			break
		}

		//set default sleep for next loop in the event of an error after continue statements
		sleep = loopDuration

		// mark the time we start working
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), loopDuration+conf.FetchTimeout)
		vehiclePositions, err := getVehiclePositions(ctx, log, client, conf.VehiclePositionsUrl)
		if err != nil {
			cancel()
			log.Printf("error attempting to get vehicle positions. error:%v\n", err)
			continue
		}

		log.Printf("loaded %d vehicle positions\n", len(vehiclePositions))

		saved := recordNewPositions(ctx, log, recorder, tracker, builder, vehiclePositions, start)
		cancel()
		if saved > 0 {
			log.Printf("Saved %d pings", saved)
		}
		if expired := tracker.expire(start); expired > 0 {
			log.Printf("expired %d vehicles no longer in feed", expired)
		}

		// attempt to run the loop every loopEverySeconds by subtracting the time it took to perform the work
		workTook := time.Now().Sub(start)

		log.Printf("work took %s\n", fmtDuration(workTook))

		// if the work took longer than loopEverySeconds don't sleep at all on the next loop
		if workTook >= loopDuration {
			sleep = time.Duration(0)
		} else {
			sleep = loopDuration - workTook
		}

	}
}

//fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, mill)
}
