package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/business/analytics/region"
	"io"
)

// maxRequestBytes limits the size of a request body, region polygons drawn by hand are small
const maxRequestBytes = 4 << 20

// analyticRequest is the body accepted by all analytic routes
type analyticRequest struct {
	filter.Request
	Path *struct {
		Features []region.Feature `json:"features"`
	} `json:"path"`
}

// features returns the region features of the request in the order they were drawn
func (a *analyticRequest) features() []region.Feature {
	if a.Path == nil {
		return nil
	}
	return a.Path.Features
}

// parseAnalyticRequest decodes an analyticRequest from body.
// malformed json or a missing path.features results in *filter.InvalidFilterError
func parseAnalyticRequest(body io.Reader) (*analyticRequest, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxRequestBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(data) > maxRequestBytes {
		return nil, &filter.InvalidFilterError{Field: "body", Reason: "request body too large"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &filter.InvalidFilterError{Field: "body", Reason: "request body is empty"}
	}
	var req analyticRequest
	if err = json.Unmarshal(data, &req); err != nil {
		return nil, &filter.InvalidFilterError{Field: "body", Reason: err.Error()}
	}
	if req.Path == nil || req.Path.Features == nil {
		return nil, &filter.InvalidFilterError{Field: "path.features", Reason: "required field is missing"}
	}
	return &req, nil
}
