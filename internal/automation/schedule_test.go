package automation

import (
	"testing"
	"time"
)

func clockTime(hour, minute int) time.Time {
	// 30 Aug 2026 is a Sunday
	return time.Date(2026, 8, 30, hour, minute, 0, 0, time.Local)
}

func TestScheduleActiveAt(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
		at       time.Time
		want     bool
	}{
		{
			name:     "nil schedule always active",
			schedule: nil,
			at:       clockTime(3, 0),
			want:     true,
		},
		{
			name:     "inside daytime window",
			schedule: &Schedule{Start: "06:00", End: "10:00"},
			at:       clockTime(8, 30),
			want:     true,
		},
		{
			name:     "before daytime window",
			schedule: &Schedule{Start: "06:00", End: "10:00"},
			at:       clockTime(5, 59),
			want:     false,
		},
		{
			name:     "at window start is active",
			schedule: &Schedule{Start: "06:00", End: "10:00"},
			at:       clockTime(6, 0),
			want:     true,
		},
		{
			name:     "at window end is inactive",
			schedule: &Schedule{Start: "06:00", End: "10:00"},
			at:       clockTime(10, 0),
			want:     false,
		},
		{
			name:     "overnight window before midnight",
			schedule: &Schedule{Start: "22:00", End: "06:00"},
			at:       clockTime(23, 15),
			want:     true,
		},
		{
			name:     "overnight window after midnight",
			schedule: &Schedule{Start: "22:00", End: "06:00"},
			at:       clockTime(4, 0),
			want:     true,
		},
		{
			name:     "overnight window midday gap",
			schedule: &Schedule{Start: "22:00", End: "06:00"},
			at:       clockTime(12, 0),
			want:     false,
		},
		{
			name:     "matching weekday",
			schedule: &Schedule{Start: "06:00", End: "10:00", Days: []time.Weekday{time.Sunday}},
			at:       clockTime(8, 0),
			want:     true,
		},
		{
			name:     "non-matching weekday",
			schedule: &Schedule{Start: "06:00", End: "10:00", Days: []time.Weekday{time.Monday, time.Friday}},
			at:       clockTime(8, 0),
			want:     false,
		},
		{
			name:     "malformed clock never active",
			schedule: &Schedule{Start: "6am", End: "10:00"},
			at:       clockTime(8, 0),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.schedule.ActiveAt(tt.at); got != tt.want {
				t.Errorf("ActiveAt(%v) = %v, want %v", tt.at.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
		wantErr  bool
	}{
		{"nil schedule", nil, false},
		{"valid window", &Schedule{Start: "06:00", End: "10:00"}, false},
		{"overnight window", &Schedule{Start: "22:00", End: "06:00"}, false},
		{"zero-width window", &Schedule{Start: "06:00", End: "06:00"}, true},
		{"bad hour", &Schedule{Start: "25:00", End: "06:00"}, true},
		{"bad minute", &Schedule{Start: "06:61", End: "10:00"}, true},
		{"missing colon", &Schedule{Start: "0600", End: "10:00"}, true},
		{"invalid weekday", &Schedule{Start: "06:00", End: "10:00", Days: []time.Weekday{8}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSchedule(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSchedule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
