package analytics

import (
	"context"
	"errors"
	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/business/analytics/region"
	"github.com/OpenTransitTools/transitping/business/analytics/speed"
	"github.com/OpenTransitTools/transitping/business/analytics/trips"
	"github.com/OpenTransitTools/transitping/business/data/ping"
	logger "log"
	"sync"
	"time"
)

// engine answers analytic requests against a region.PointStore.
// it holds no per request state and is shared by all http handlers
type engine struct {
	log     *logger.Logger
	store   region.PointStore
	metrics *metricsCollector
	// regionConcurrency is the number of region queries allowed in flight for one request, 1 is sequential
	regionConcurrency int
}

func makeEngine(log *logger.Logger, store region.PointStore, metrics *metricsCollector, regionConcurrency int) *engine {
	if regionConcurrency < 1 {
		regionConcurrency = 1
	}
	return &engine{
		log:               log,
		store:             store,
		metrics:           metrics,
		regionConcurrency: regionConcurrency,
	}
}

// prepare builds clauses for req and retrieves the records of each region, indexed by region
func (e *engine) prepare(ctx context.Context, req *analyticRequest) ([][]ping.Record, error) {
	clauses, err := filter.Build(req.Request)
	if err != nil {
		return nil, err
	}
	return e.fetchRegions(ctx, req.features(), clauses)
}

// fetchRegions queries every feature, at most regionConcurrency at a time.
// results are returned in feature order regardless of completion order. The first failure cancels the
// remaining queries and is returned, preferring the lowest failed region that wasn't cancelled by it
func (e *engine) fetchRegions(ctx context.Context,
	features []region.Feature,
	clauses []filter.Clause) ([][]ping.Record, error) {

	results := make([][]ping.Record, len(features))
	errs := make([]error, len(features))
	queried := make([]bool, len(features))
	if len(features) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := e.regionConcurrency
	if workers > len(features) {
		workers = len(features)
	}

	indexes := make(chan int)
	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				start := time.Now()
				records, err := region.Query(ctx, e.store, i, features[i], clauses)
				e.metrics.observeRegionQuery(time.Since(start), len(records), err)
				queried[i] = true
				if err != nil {
					errs[i] = err
					cancel()
					continue
				}
				results[i] = records
			}
		}()
	}

feed:
	for i := range features {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if err := firstRegionError(errs); err != nil {
		return nil, err
	}
	for i := range features {
		if !queried[i] {
			// the request context ended before this region was queried
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			return nil, &region.StoreQueryError{Region: i, Err: cause}
		}
	}
	return results, nil
}

// firstRegionError returns the lowest indexed error that isn't a cancellation, or the lowest indexed error
func firstRegionError(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// addRegionRecords adds records to builder, logging and counting the ones that are malformed
func (e *engine) addRegionRecords(builder *trips.Builder, regionIndex int, records []ping.Record) {
	malformed := builder.AddRecords(records)
	e.reportMalformed(regionIndex, malformed)
}

func (e *engine) reportMalformed(regionIndex int, malformed []error) {
	for _, err := range malformed {
		e.log.Printf("region %d: skipping record, %v", regionIndex, err)
	}
	e.metrics.addMalformedRecords(len(malformed))
}

// tripSpans merges the records of all regions into trips
func (e *engine) tripSpans(ctx context.Context, req *analyticRequest) ([]*trips.Trip, error) {
	regionRecords, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	builder := trips.NewBuilder()
	for i, records := range regionRecords {
		e.addRegionRecords(builder, i, records)
	}
	return builder.Trips(), nil
}

// pings returns valid pings of all regions, region by region in the order retrieved
func (e *engine) pings(ctx context.Context, req *analyticRequest) ([]ping.Ping, error) {
	regionRecords, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	var results []ping.Ping
	for i, records := range regionRecords {
		var malformed []error
		for j := range records {
			p, err := records[j].Ping()
			if err != nil {
				malformed = append(malformed, err)
				continue
			}
			results = append(results, p)
		}
		e.reportMalformed(i, malformed)
	}
	return results, nil
}

// lineSpeeds computes line speed aggregates independently for each region, ordered by region then line
func (e *engine) lineSpeeds(ctx context.Context, req *analyticRequest) ([]speed.LineSpeed, error) {
	regionRecords, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	results := make([]speed.LineSpeed, 0)
	for i, records := range regionRecords {
		builder := trips.NewBuilder()
		e.addRegionRecords(builder, i, records)
		results = append(results, speed.LineAverages(i, builder.Trips())...)
	}
	return results, nil
}
