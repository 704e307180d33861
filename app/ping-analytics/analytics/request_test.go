package analytics

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/matryer/is"
)

func Test_parseAnalyticRequest(t *testing.T) {
	is := is.New(t)
	req, err := parseAnalyticRequest(requestBody(2, `"holidays":0`))
	is.NoErr(err)
	is.Equal(*req.StartHour, -1)
	is.Equal(*req.Lines, "")
	is.Equal(*req.Holidays, 0)

	features := req.features()
	is.Equal(len(features), 2)
	is.Equal(features[0].Type, "Feature")
	is.Equal(string(features[1].Geometry), regionGeometry(1))
	is.Equal(string(features[0].Properties), `{"name":"r0"}`)
}

func Test_parseAnalyticRequest_errors(t *testing.T) {
	tests := []struct {
		name      string
		body      io.Reader
		wantField string
	}{
		{name: "empty body", body: strings.NewReader("  "), wantField: "body"},
		{name: "not json", body: strings.NewReader("startHour=1"), wantField: "body"},
		{name: "wrong type", body: strings.NewReader(`{"startHour":"seven"}`), wantField: "body"},
		{name: "missing path", body: strings.NewReader(`{"startHour":1}`), wantField: "path.features"},
		{name: "missing features", body: strings.NewReader(`{"path":{"type":"FeatureCollection"}}`), wantField: "path.features"},
		{name: "too large", body: strings.NewReader(strings.Repeat(" ", maxRequestBytes+1)), wantField: "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			_, err := parseAnalyticRequest(tt.body)
			var filterErr *filter.InvalidFilterError
			is.True(errors.As(err, &filterErr))
			is.Equal(filterErr.Field, tt.wantField)
		})
	}
}

func Test_parseAnalyticRequest_emptyFeatureList(t *testing.T) {
	is := is.New(t)
	req, err := parseAnalyticRequest(strings.NewReader(`{"path":{"features":[]}}`))
	is.NoErr(err)
	is.Equal(len(req.features()), 0)
	// filter fields are validated when the request is run
	is.True(req.StartHour == nil)
}
