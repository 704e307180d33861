package ingest

import (
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"time"
)

//transitHolidayCalendar holds the holidays observed by a transit agency, used to populate the ping holiday column
type transitHolidayCalendar struct {
	calendar *cal.BusinessCalendar
}

//makeTransitHolidayCalendar builds transitHolidayCalendar from the US federal holidays transit agencies commonly
//run reduced service on
func makeTransitHolidayCalendar() *transitHolidayCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &transitHolidayCalendar{calendar: calendar}
}

//isHoliday returns true if at falls on the observed date of a holiday
func (t *transitHolidayCalendar) isHoliday(at time.Time) bool {
	_, observed, _ := t.calendar.IsHoliday(at)
	return observed
}
