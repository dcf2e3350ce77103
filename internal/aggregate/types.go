package aggregate

import (
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Period names a rollup window size.
type Period string

// Supported rollup periods.
const (
	PeriodHourly Period = "hourly"
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// AllPeriods returns the periods the scheduler maintains.
func AllPeriods() []Period {
	return []Period{PeriodHourly, PeriodDaily, PeriodWeekly}
}

// Rollup is one persisted aggregate: the stats for one device, data
// type, period, and window start.
type Rollup struct {
	ID          string           `json:"id"`
	DeviceID    string           `json:"device_id"`
	FarmID      string           `json:"farm_id"`
	DataType    reading.DataType `json:"data_type"`
	Period      Period           `json:"period"`
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
	Stats       Stats            `json:"stats"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Series identifies one stream of readings to aggregate.
type Series struct {
	DeviceID string
	FarmID   string
	DataType reading.DataType
}

// windowStart truncates t to the start of the period's window.
// Weekly windows start on Monday 00:00 UTC.
func windowStart(p Period, t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case PeriodHourly:
		return t.Truncate(time.Hour)
	case PeriodDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeekly:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return t.Truncate(time.Hour)
	}
}

// windowEnd returns the exclusive end of the window starting at start.
func windowEnd(p Period, start time.Time) time.Time {
	switch p {
	case PeriodHourly:
		return start.Add(time.Hour)
	case PeriodDaily:
		return start.AddDate(0, 0, 1)
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	default:
		return start.Add(time.Hour)
	}
}
