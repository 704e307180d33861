// Package analytics serves trip, ping and line speed exports for user drawn regions
package analytics

import (
	"github.com/OpenTransitTools/transitping/business/analytics/region"
	logger "log"
	"os"
	"sync"
	"time"
)

//Conf contains all configurable parameters of the analytics service
type Conf struct {
	HttpPort int
	// StoreQueryTimeout bounds the point store queries of a single request
	StoreQueryTimeout time.Duration
	// RegionQueryConcurrency is the number of region queries a request may run at once, 1 queries sequentially
	RegionQueryConcurrency int
	SpeedResultsSubject    string
}

//StartServices brings up the web service and blocks until shutdownSignal.
//natsConn may be nil, in which case line speed results are not published
func StartServices(log *logger.Logger,
	store region.PointStore,
	natsConn MessagePublisher,
	conf Conf,
	shutdownSignal chan os.Signal) {

	metrics := makeMetricsCollector()
	e := makeEngine(log, store, metrics, conf.RegionQueryConcurrency)

	var publisher *speedResultsPublisher
	if natsConn != nil {
		log.Printf("Publishing line speed results on subject:%s", conf.SpeedResultsSubject)
		publisher = makeSpeedResultsPublisher(log, natsConn, conf.SpeedResultsSubject, metrics)
	}

	srv := createServer(log, e, publisher, metrics, conf.StoreQueryTimeout, conf.HttpPort)

	wg := sync.WaitGroup{}
	webServiceShutdown := make(chan bool, 1)
	wg.Add(1)
	go runWebService(log, &wg, srv, webServiceShutdown)

	<-shutdownSignal
	log.Printf("Exiting on shutdown signal, shutting down subroutines")
	webServiceShutdown <- true
	wg.Wait()
	log.Printf("Subroutines shut down, exiting analytics service")
}
