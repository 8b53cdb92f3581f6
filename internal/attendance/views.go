package attendance

import "strings"

// Today is the backend's answer for the current day of one employee.
type Today struct {
	ClockIn  *string `json:"clockIn"`
	ClockOut *string `json:"clockOut"`
}

func (t Today) Day(date string) Day {
	return Day{Date: date, ClockIn: t.ClockIn, ClockOut: t.ClockOut}
}

type Actions struct {
	CanClockIn  bool
	CanClockOut bool
}

// AvailableActions allows one clock-in per day and a clock-out only after it.
func AvailableActions(t Today) Actions {
	in, out := present(t.ClockIn), present(t.ClockOut)
	return Actions{
		CanClockIn:  !in,
		CanClockOut: in && !out,
	}
}

// StatusFilter selects records in the monitoring view. The empty value and
// "all" keep everything.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterPresent    StatusFilter = "present"
	FilterIncomplete StatusFilter = "incomplete"
	FilterAbsent     StatusFilter = "absent"
)

func (f StatusFilter) Valid() bool {
	switch f {
	case "", FilterAll, FilterPresent, FilterIncomplete, FilterAbsent:
		return true
	}
	return false
}

func (f StatusFilter) match(day Day) bool {
	switch f {
	case FilterPresent:
		return Classify(day) == StatusComplete
	case FilterIncomplete:
		return Classify(day) == StatusIncomplete
	case FilterAbsent:
		return Classify(day) == StatusAbsent
	default:
		return true
	}
}

type Filter struct {
	Status       StatusFilter
	EmployeeName string
}

// Apply keeps the days matching both the name substring (case-insensitive)
// and the status. The input slice is not modified.
func (f Filter) Apply(days []Day) []Day {
	name := strings.ToLower(strings.TrimSpace(f.EmployeeName))
	out := make([]Day, 0, len(days))
	for _, day := range days {
		if name != "" && !strings.Contains(strings.ToLower(day.EmployeeName), name) {
			continue
		}
		if !f.Status.match(day) {
			continue
		}
		out = append(out, day)
	}
	return out
}

const recentActivityLimit = 5

// DailyOverview is the admin dashboard's picture of one day.
type DailyOverview struct {
	TotalEmployees  int
	ActiveEmployees int
	Present         int
	Incomplete      int
	Absent          int
	Recent          []Day
}

// Overview combines the employee roster size with the day's report. Employees
// missing from the report count as absent; the count never goes below zero.
func Overview(totalEmployees, activeEmployees int, report []Day) DailyOverview {
	sum := Aggregate(report)
	absent := totalEmployees - (sum.Complete + sum.Incomplete)
	if absent < 0 {
		absent = 0
	}
	recent := report
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}
	return DailyOverview{
		TotalEmployees:  totalEmployees,
		ActiveEmployees: activeEmployees,
		Present:         sum.Complete,
		Incomplete:      sum.Incomplete,
		Absent:          absent,
		Recent:          append([]Day(nil), recent...),
	}
}
