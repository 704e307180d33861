package ping

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/OpenTransitTools/transitping/business/analytics/filter"
	"github.com/OpenTransitTools/transitping/foundation/database"
	"github.com/jmoiron/sqlx"
	"strings"
)

// clauseColumns maps filter.Clause fields to ping table columns
var clauseColumns = map[string]string{
	filter.FieldHour:      "hour",
	filter.FieldDayOfWeek: "day_of_week",
	filter.FieldMonth:     "month",
	filter.FieldYear:      "year",
	filter.FieldLine:      "published_line_name",
	filter.FieldHoliday:   "holiday",
}

const selectPingColumns = "select origin_ref, " +
	"bearing, " +
	"latitude, " +
	"longitude, " +
	"vehicle_ref, " +
	"destination_name, " +
	"journey_pattern_ref, " +
	"recorded_at_time, " +
	"line_ref, " +
	"published_line_name, " +
	"dated_vehicle_journey_ref, " +
	"direction_ref " +
	"from ping "

// Store answers region queries from the ping table using PostGIS
type Store struct {
	db *sqlx.DB
}

// NewStore creates Store on db
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// FindWithin retrieves all Records located within geometry (a GeoJSON geometry object in WGS-84)
// that satisfy every clause. Results are in no particular order
func (s *Store) FindWithin(ctx context.Context,
	geometry json.RawMessage,
	clauses []filter.Clause) ([]Record, error) {

	query, args, err := buildWithinQuery(geometry, clauses)
	if err != nil {
		return nil, err
	}
	var records []Record
	err = database.SelectNamedContext(ctx, s.db, &records, query, args)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve pings within region. query:%s error: %w", query, err)
	}
	return records, nil
}

// buildWithinQuery renders the named query and its argument map for geometry and clauses
func buildWithinQuery(geometry json.RawMessage, clauses []filter.Clause) (string, map[string]interface{}, error) {
	if len(geometry) == 0 {
		return "", nil, fmt.Errorf("region geometry is empty")
	}
	var builder strings.Builder
	builder.WriteString(selectPingColumns)
	builder.WriteString("where ST_Within(location, ST_SetSRID(ST_GeomFromGeoJSON(:geometry), 4326))")
	args := map[string]interface{}{
		"geometry": string(geometry),
	}

	for i, clause := range clauses {
		column, present := clauseColumns[clause.Field]
		if !present {
			return "", nil, fmt.Errorf("no column for clause field %s", clause.Field)
		}
		low := fmt.Sprintf("c%d_low", i)
		high := fmt.Sprintf("c%d_high", i)
		switch clause.Op {
		case filter.AtLeast:
			builder.WriteString(fmt.Sprintf(" and %s >= :%s", column, low))
			args[low] = clause.Low
		case filter.AtMost:
			builder.WriteString(fmt.Sprintf(" and %s <= :%s", column, high))
			args[high] = clause.High
		case filter.Between:
			builder.WriteString(fmt.Sprintf(" and %s >= :%s and %s <= :%s", column, low, column, high))
			args[low] = clause.Low
			args[high] = clause.High
		case filter.Equals:
			builder.WriteString(fmt.Sprintf(" and %s = :%s", column, low))
			if clause.Field == filter.FieldHoliday {
				args[low] = clause.Low == 1
			} else {
				args[low] = clause.Low
			}
		case filter.In:
			if len(clause.Values) == 0 {
				return "", nil, fmt.Errorf("clause on %s has no values", clause.Field)
			}
			values := fmt.Sprintf("c%d_values", i)
			builder.WriteString(fmt.Sprintf(" and %s in (:%s)", column, values))
			args[values] = clause.Values
		default:
			return "", nil, fmt.Errorf("unsupported operator %s on %s", clause.Op, clause.Field)
		}
	}
	return builder.String(), args, nil
}

// StoredPing is a Record along with the calendar columns derived from its recorded time
type StoredPing struct {
	Record
	Hour      int  `db:"hour"`
	DayOfWeek int  `db:"day_of_week"`
	Month     int  `db:"month"`
	Year      int  `db:"year"`
	Holiday   bool `db:"holiday"`
}

// RecordPings saves pings into database in batch
func RecordPings(ctx context.Context, db *sqlx.DB, pings []*StoredPing) error {
	if len(pings) == 0 {
		return nil
	}
	statementString := "insert into ping ( " +
		"origin_ref, " +
		"bearing, " +
		"latitude, " +
		"longitude, " +
		"vehicle_ref, " +
		"destination_name, " +
		"journey_pattern_ref, " +
		"recorded_at_time, " +
		"line_ref, " +
		"published_line_name, " +
		"dated_vehicle_journey_ref, " +
		"direction_ref, " +
		"hour, " +
		"day_of_week, " +
		"month, " +
		"year, " +
		"holiday) " +
		"values (" +
		":origin_ref, " +
		":bearing, " +
		":latitude, " +
		":longitude, " +
		":vehicle_ref, " +
		":destination_name, " +
		":journey_pattern_ref, " +
		":recorded_at_time, " +
		":line_ref, " +
		":published_line_name, " +
		":dated_vehicle_journey_ref, " +
		":direction_ref, " +
		":hour, " +
		":day_of_week, " +
		":month, " +
		":year, " +
		":holiday)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExecContext(ctx, statementString, pings)
	return err
}

// Schema creates the ping table and its indexes. location is derived from longitude and latitude
const Schema = `
create extension if not exists postgis;

create table if not exists ping (
    id                        bigserial primary key,
    origin_ref                text,
    bearing                   double precision,
    latitude                  double precision not null,
    longitude                 double precision not null,
    location                  geometry(Point, 4326)
                              generated always as (ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)) stored,
    vehicle_ref               text,
    destination_name          text,
    journey_pattern_ref       text,
    recorded_at_time          timestamptz not null,
    line_ref                  text,
    published_line_name       text,
    dated_vehicle_journey_ref text,
    direction_ref             text,
    hour                      smallint not null,
    day_of_week               smallint not null,
    month                     smallint not null,
    year                      smallint not null,
    holiday                   boolean not null default false
);

create index if not exists ping_location_idx on ping using gist (location);
create index if not exists ping_recorded_at_time_idx on ping (recorded_at_time);
create index if not exists ping_published_line_name_idx on ping (published_line_name);
`

// CreateSchema runs Schema against db
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
