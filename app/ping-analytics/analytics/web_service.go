package analytics

import (
	"context"
	"errors"
	"github.com/OpenTransitTools/transitping/business/analytics/export"
	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/business/analytics/region"
	"github.com/gorilla/mux"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// exportFunc produces the csv body for one analytic route
type exportFunc func(ctx context.Context, req *analyticRequest) (string, error)

//exportHandler parses analytic requests, runs them with a deadline and writes the csv export
type exportHandler struct {
	log          *logger.Logger
	route        string
	metrics      *metricsCollector
	queryTimeout time.Duration
	run          exportFunc
}

//ServeHTTP implements exportHandler's http.Handler interface
func (h *exportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	code := h.serve(w, r)
	h.metrics.observeRequest(h.route, code, time.Since(start))
}

func (h *exportHandler) serve(w http.ResponseWriter, r *http.Request) int {
	req, err := parseAnalyticRequest(r.Body)
	if err != nil {
		return h.writeError(w, err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	body, err := h.run(ctx, req)
	if err != nil {
		return h.writeError(w, err)
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", export.ContentDisposition)
	w.WriteHeader(http.StatusOK)
	bytesWritten, err := w.Write([]byte(body))
	if err != nil {
		h.log.Printf("Error writing %s response: %s", h.route, err)
		return http.StatusOK
	}
	h.log.Printf("wrote %d bytes for %s with %d regions", bytesWritten, h.route, len(req.features()))
	return http.StatusOK
}

//writeError maps err to an http status code, writes it and returns the code
func (h *exportHandler) writeError(w http.ResponseWriter, err error) int {
	var filterErr *filter.InvalidFilterError
	var storeErr *region.StoreQueryError
	switch {
	case errors.As(err, &filterErr):
		h.log.Printf("rejecting %s request: %v", h.route, err)
		http.Error(w, filterErr.Error(), http.StatusBadRequest)
		return http.StatusBadRequest
	case errors.As(err, &storeErr):
		h.log.Printf("%s request failed: %v", h.route, err)
		http.Error(w, "point store query failed", http.StatusBadGateway)
		return http.StatusBadGateway
	default:
		h.log.Printf("%s request failed: %v", h.route, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}
}

//tripsExport renders trip spans for all regions
func tripsExport(e *engine) exportFunc {
	return func(ctx context.Context, req *analyticRequest) (string, error) {
		tripList, err := e.tripSpans(ctx, req)
		if err != nil {
			return "", err
		}
		return export.Trips(tripList), nil
	}
}

//pingsExport renders raw pings for all regions
func pingsExport(e *engine) exportFunc {
	return func(ctx context.Context, req *analyticRequest) (string, error) {
		pings, err := e.pings(ctx, req)
		if err != nil {
			return "", err
		}
		return export.Pings(pings), nil
	}
}

//speedsExport renders per region line speeds and hands them to publisher
func speedsExport(e *engine, publisher *speedResultsPublisher) exportFunc {
	return func(ctx context.Context, req *analyticRequest) (string, error) {
		lineSpeeds, err := e.lineSpeeds(ctx, req)
		if err != nil {
			return "", err
		}
		publisher.publish(lineSpeeds)
		return export.Speeds(lineSpeeds), nil
	}
}

//makeRouter registers all analytic routes
func makeRouter(log *logger.Logger,
	e *engine,
	publisher *speedResultsPublisher,
	metrics *metricsCollector,
	queryTimeout time.Duration) *mux.Router {

	handler := func(route string, run exportFunc) *exportHandler {
		return &exportHandler{
			log:          log,
			route:        route,
			metrics:      metrics,
			queryTimeout: queryTimeout,
			run:          run,
		}
	}

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/getTrips", handler("getTrips", tripsExport(e))).Methods(http.MethodPost)
	r.Handle("/getPings", handler("getPings", pingsExport(e))).Methods(http.MethodPost)
	r.Handle("/getSpeed", handler("getSpeed", speedsExport(e, publisher))).Methods(http.MethodPost)
	if metrics != nil {
		r.Handle("/metrics", metrics.handler()).Methods(http.MethodGet)
	}
	return r
}

//createServer creates configured http.Server for responding to analytic requests
func createServer(log *logger.Logger,
	e *engine,
	publisher *speedResultsPublisher,
	metrics *metricsCollector,
	queryTimeout time.Duration,
	httpPort int) *http.Server {

	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// request deadline is applied to store queries, allow writing the response after it
		WriteTimeout: queryTimeout + time.Second*15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      makeRouter(log, e, publisher, metrics, queryTimeout),
	}
	return srv
}

//runWebService starts up the analytics web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	srv *http.Server,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	log.Printf("Starting server on %s", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
