// Package filter translates analytic filter requests into conjunctive predicate clauses understood by the
// point store
package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Unset is the sentinel for an unbounded hour or "any" calendar value
const Unset = -1

// Fields that clauses apply to
const (
	FieldHour      = "hour"
	FieldDayOfWeek = "dayOfWeek"
	FieldMonth     = "month"
	FieldYear      = "year"
	FieldLine      = "line"
	FieldHoliday   = "holiday"
)

// Operator is the comparison a Clause applies to its Field
type Operator int

const (
	// AtLeast matches Field >= Low
	AtLeast Operator = iota
	// AtMost matches Field <= High
	AtMost
	// Between matches Field >= Low AND Field <= High
	Between
	// Equals matches Field = Low
	Equals
	// In matches when Field is one of Values
	In
)

// String - Stringer interface for Operator
func (o Operator) String() string {
	switch o {
	case AtLeast:
		return "AT_LEAST"
	case AtMost:
		return "AT_MOST"
	case Between:
		return "BETWEEN"
	case Equals:
		return "EQUALS"
	case In:
		return "IN"
	}
	return "UNKNOWN"
}

// Clause is a single predicate, all clauses produced by Build must hold for a ping to match
type Clause struct {
	Field  string
	Op     Operator
	Low    int
	High   int
	Values []string
}

// String renders the clause in a readable form such as "hour >= 5 AND hour <= 5"
func (c Clause) String() string {
	switch c.Op {
	case AtLeast:
		return fmt.Sprintf("%s >= %d", c.Field, c.Low)
	case AtMost:
		return fmt.Sprintf("%s <= %d", c.Field, c.High)
	case Between:
		return fmt.Sprintf("%s >= %d AND %s <= %d", c.Field, c.Low, c.Field, c.High)
	case Equals:
		return fmt.Sprintf("%s = %d", c.Field, c.Low)
	case In:
		return fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(c.Values, ","))
	}
	return c.Field + " " + c.Op.String()
}

// Request holds the filter fields of an analytic request.
// Fields are pointers so a missing field can be told apart from its -1 sentinel
type Request struct {
	StartHour *int    `json:"startHour"`
	EndHour   *int    `json:"endHour"`
	DayOfWeek *int    `json:"dayOfWeek"`
	Month     *int    `json:"month"`
	Year      *int    `json:"year"`
	Lines     *string `json:"lines"`
	// Holidays is optional. nil or -1 matches any day, 0 excludes observed holidays, 1 matches only holidays
	Holidays *int `json:"holidays"`
}

// InvalidFilterError is returned when a required filter field is absent or holds an unusable value
type InvalidFilterError struct {
	Field  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter field %s: %s", e.Field, e.Reason)
}

func missing(field string) *InvalidFilterError {
	return &InvalidFilterError{Field: field, Reason: "required field is missing"}
}

// Build produces the ordered clause list for req: hour, dayOfWeek, month, year, line and holiday.
//
// The hour clauses compare the upper bound against StartHour rather than EndHour. Existing exports were
// produced with this behavior and it is kept until the intended semantics are confirmed.
func Build(req Request) ([]Clause, error) {
	required := []struct {
		name  string
		isNil bool
	}{
		{"startHour", req.StartHour == nil},
		{"endHour", req.EndHour == nil},
		{"dayOfWeek", req.DayOfWeek == nil},
		{"month", req.Month == nil},
		{"year", req.Year == nil},
		{"lines", req.Lines == nil},
	}
	for _, r := range required {
		if r.isNil {
			return nil, missing(r.name)
		}
	}

	var clauses []Clause

	startHour, endHour := *req.StartHour, *req.EndHour
	if startHour != Unset && endHour != Unset {
		clauses = append(clauses, Clause{Field: FieldHour, Op: Between, Low: startHour, High: startHour})
	} else if startHour == Unset && endHour != Unset {
		clauses = append(clauses, Clause{Field: FieldHour, Op: AtMost, High: startHour})
	} else if startHour != Unset && endHour == Unset {
		clauses = append(clauses, Clause{Field: FieldHour, Op: AtLeast, Low: startHour})
	}

	if *req.DayOfWeek != Unset {
		clauses = append(clauses, Clause{Field: FieldDayOfWeek, Op: Equals, Low: *req.DayOfWeek})
	}
	if *req.Month != Unset {
		clauses = append(clauses, Clause{Field: FieldMonth, Op: Equals, Low: *req.Month})
	}
	if *req.Year != Unset {
		clauses = append(clauses, Clause{Field: FieldYear, Op: Equals, Low: *req.Year})
	}

	lines := strings.Split(*req.Lines, ",")
	if len(lines) > 0 && lines[0] != "" {
		clauses = append(clauses, Clause{Field: FieldLine, Op: In, Values: lines})
	}

	if req.Holidays != nil && *req.Holidays != Unset {
		switch *req.Holidays {
		case 0, 1:
			clauses = append(clauses, Clause{Field: FieldHoliday, Op: Equals, Low: *req.Holidays})
		default:
			return nil, &InvalidFilterError{Field: "holidays",
				Reason: "expected -1, 0 or 1, got " + strconv.Itoa(*req.Holidays)}
		}
	}

	return clauses, nil
}
