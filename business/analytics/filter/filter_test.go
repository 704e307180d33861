package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matryer/is"
)

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func anyRequest() Request {
	return Request{
		StartHour: intPtr(Unset),
		EndHour:   intPtr(Unset),
		DayOfWeek: intPtr(Unset),
		Month:     intPtr(Unset),
		Year:      intPtr(Unset),
		Lines:     stringPtr(""),
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Request)
		want   []Clause
	}{
		{
			name:   "no filters produce no clauses",
			modify: func(r *Request) {},
			want:   nil,
		},
		{
			name: "both hours use start hour as upper bound",
			modify: func(r *Request) {
				r.StartHour = intPtr(5)
				r.EndHour = intPtr(9)
			},
			want: []Clause{{Field: FieldHour, Op: Between, Low: 5, High: 5}},
		},
		{
			name: "only end hour compares against start hour value",
			modify: func(r *Request) {
				r.EndHour = intPtr(9)
			},
			want: []Clause{{Field: FieldHour, Op: AtMost, High: Unset}},
		},
		{
			name: "only start hour",
			modify: func(r *Request) {
				r.StartHour = intPtr(7)
			},
			want: []Clause{{Field: FieldHour, Op: AtLeast, Low: 7}},
		},
		{
			name: "calendar fields and lines in order",
			modify: func(r *Request) {
				r.Year = intPtr(2024)
				r.DayOfWeek = intPtr(2)
				r.Month = intPtr(11)
				r.Lines = stringPtr("M1,B63")
			},
			want: []Clause{
				{Field: FieldDayOfWeek, Op: Equals, Low: 2},
				{Field: FieldMonth, Op: Equals, Low: 11},
				{Field: FieldYear, Op: Equals, Low: 2024},
				{Field: FieldLine, Op: In, Values: []string{"M1", "B63"}},
			},
		},
		{
			name: "empty first line disables line clause",
			modify: func(r *Request) {
				r.Lines = stringPtr(",M1")
			},
			want: nil,
		},
		{
			name: "only holidays",
			modify: func(r *Request) {
				r.Holidays = intPtr(1)
			},
			want: []Clause{{Field: FieldHoliday, Op: Equals, Low: 1}},
		},
		{
			name: "holidays any",
			modify: func(r *Request) {
				r.Holidays = intPtr(Unset)
			},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := anyRequest()
			tt.modify(&req)
			got, err := Build(req)
			if err != nil {
				t.Fatalf("Build() unexpected error %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Build() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuild_HourAnomalyString(t *testing.T) {
	is := is.New(t)
	req := anyRequest()
	req.StartHour = intPtr(5)
	req.EndHour = intPtr(9)
	clauses, err := Build(req)
	is.NoErr(err)
	is.Equal(len(clauses), 1)
	is.Equal(clauses[0].String(), "hour >= 5 AND hour <= 5")
}

func TestBuild_MissingFields(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(r *Request)
		wantField string
	}{
		{"start hour", func(r *Request) { r.StartHour = nil }, "startHour"},
		{"end hour", func(r *Request) { r.EndHour = nil }, "endHour"},
		{"day of week", func(r *Request) { r.DayOfWeek = nil }, "dayOfWeek"},
		{"month", func(r *Request) { r.Month = nil }, "month"},
		{"year", func(r *Request) { r.Year = nil }, "year"},
		{"lines", func(r *Request) { r.Lines = nil }, "lines"},
		{"bad holidays value", func(r *Request) { r.Holidays = intPtr(3) }, "holidays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			req := anyRequest()
			tt.modify(&req)
			_, err := Build(req)
			var filterErr *InvalidFilterError
			is.True(errors.As(err, &filterErr))
			is.Equal(filterErr.Field, tt.wantField)
		})
	}
}

func TestClause_String(t *testing.T) {
	tests := []struct {
		clause Clause
		want   string
	}{
		{Clause{Field: FieldHour, Op: AtLeast, Low: 4}, "hour >= 4"},
		{Clause{Field: FieldHour, Op: AtMost, High: 6}, "hour <= 6"},
		{Clause{Field: FieldMonth, Op: Equals, Low: 3}, "month = 3"},
		{Clause{Field: FieldLine, Op: In, Values: []string{"M1", "M2"}}, "line IN (M1,M2)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.clause.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}
