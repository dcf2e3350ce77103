package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActiveAt reports whether the schedule window is open at t.
//
// A nil schedule is always open. Windows compare wall-clock minutes so
// a window whose end precedes its start wraps past midnight.
func (s *Schedule) ActiveAt(t time.Time) bool {
	if s == nil {
		return true
	}

	if len(s.Days) > 0 {
		day := t.Weekday()
		found := false
		for _, d := range s.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, err := parseClock(s.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(s.End)
	if err != nil {
		return false
	}

	now := t.Hour()*60 + t.Minute()

	if start <= end {
		return now >= start && now < end
	}
	// Overnight window, e.g. 22:00 to 06:00
	return now >= start || now < end
}

// parseClock converts an "HH:MM" string to minutes past midnight.
func parseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidSchedule, clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: hour in %q out of range", ErrInvalidSchedule, clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: minute in %q out of range", ErrInvalidSchedule, clock)
	}

	return hour*60 + minute, nil
}

// validateSchedule checks both clock strings parse and the window is
// not zero-width.
func validateSchedule(s *Schedule) error {
	if s == nil {
		return nil
	}

	start, err := parseClock(s.Start)
	if err != nil {
		return err
	}
	end, err := parseClock(s.End)
	if err != nil {
		return err
	}
	if start == end {
		return fmt.Errorf("%w: window is zero-width", ErrInvalidSchedule)
	}

	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: invalid weekday %d", ErrInvalidSchedule, d)
		}
	}
	return nil
}
