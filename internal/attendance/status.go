package attendance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Status string

const (
	StatusAbsent     Status = "absent"
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// Label is the text shown next to a record.
func (s Status) Label() string {
	switch s {
	case StatusComplete:
		return "Complete"
	case StatusIncomplete:
		return "In Progress"
	default:
		return "Absent"
	}
}

// Day is one employee's attendance for one calendar day. ClockIn and ClockOut
// are time-of-day strings as sent by the backend, nil when not recorded.
type Day struct {
	Date          string  `json:"date"`
	ClockIn       *string `json:"clockIn"`
	ClockOut      *string `json:"clockOut"`
	EmployeeName  string  `json:"employeeName,omitempty"`
	Position      string  `json:"position,omitempty"`
	EmployeePhoto string  `json:"employeePhoto,omitempty"`
}

func present(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

// Classify derives the status from clockIn alone, then clockOut. A clock-out
// without a clock-in is Absent.
func Classify(day Day) Status {
	switch {
	case !present(day.ClockIn):
		return StatusAbsent
	case !present(day.ClockOut):
		return StatusIncomplete
	default:
		return StatusComplete
	}
}

// Anomalous reports a record that has an end without a start.
func Anomalous(day Day) bool {
	return !present(day.ClockIn) && present(day.ClockOut)
}

var timeOfDayLayouts = []string{"15:04:05", "15:04"}

// referenceDate anchors both clock values so their difference is a plain
// subtraction; shifts crossing midnight come out negative.
var referenceDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func parseTimeOfDay(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return referenceDate.Add(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), true
		}
	}
	return time.Time{}, false
}

// WorkingHours returns clockOut-clockIn in fractional hours. ok is false
// unless both values are present and parse as a time of day.
func WorkingHours(clockIn, clockOut *string) (hours float64, ok bool) {
	if !present(clockIn) || !present(clockOut) {
		return 0, false
	}
	start, ok := parseTimeOfDay(*clockIn)
	if !ok {
		return 0, false
	}
	end, ok := parseTimeOfDay(*clockOut)
	if !ok {
		return 0, false
	}
	return end.Sub(start).Hours(), true
}

// DayHours is WorkingHours for a record.
func DayHours(day Day) (float64, bool) {
	return WorkingHours(day.ClockIn, day.ClockOut)
}

// FormatHours renders hours with one decimal, or "-" when there is nothing to show.
func FormatHours(hours float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1fh", hours)
}

type Summary struct {
	Total      int     `json:"total"`
	Complete   int     `json:"complete"`
	Incomplete int     `json:"incomplete"`
	Absent     int     `json:"absent"`
	TotalHours float64 `json:"totalHours"`
}

// Aggregate counts days by status and sums the hours of every day that has them.
func Aggregate(days []Day) Summary {
	s := Summary{Total: len(days)}
	for _, day := range days {
		switch Classify(day) {
		case StatusComplete:
			s.Complete++
		case StatusIncomplete:
			s.Incomplete++
		default:
			s.Absent++
		}
		if h, ok := DayHours(day); ok {
			s.TotalHours += h
		}
	}
	return s
}

// AttendanceRate is the share of complete days as a rounded percentage.
func AttendanceRate(s Summary) int {
	if s.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(s.Complete) * 100 / float64(s.Total)))
}
