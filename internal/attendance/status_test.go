package attendance

import (
	"math"
	"testing"
)

func ptr(s string) *string { return &s }

func TestClassifyIsTotal(t *testing.T) {
	cases := []struct {
		in, out *string
		want    Status
		anomaly bool
	}{
		{nil, nil, StatusAbsent, false},
		{ptr("09:00"), nil, StatusIncomplete, false},
		{ptr("09:00"), ptr("17:00"), StatusComplete, false},
		{nil, ptr("17:00"), StatusAbsent, true},
		{ptr(""), ptr(""), StatusAbsent, false},
	}
	for _, tc := range cases {
		day := Day{ClockIn: tc.in, ClockOut: tc.out}
		if got := Classify(day); got != tc.want {
			t.Fatalf("classify(%v,%v) expected %s, got %s", tc.in, tc.out, tc.want, got)
		}
		if got := Anomalous(day); got != tc.anomaly {
			t.Fatalf("anomalous(%v,%v) expected %v", tc.in, tc.out, tc.anomaly)
		}
	}
}

func TestWorkingHours(t *testing.T) {
	hours, ok := WorkingHours(ptr("09:00"), ptr("17:00"))
	if !ok || hours != 8.0 {
		t.Fatalf("expected 8.0, got %v ok=%v", hours, ok)
	}
	if _, ok := WorkingHours(ptr("09:00"), nil); ok {
		t.Fatalf("expected none without clock-out")
	}
	if _, ok := WorkingHours(nil, ptr("09:00")); ok {
		t.Fatalf("expected none without clock-in")
	}
	hours, ok = WorkingHours(ptr("17:00"), ptr("09:00"))
	if !ok || hours != -8.0 {
		t.Fatalf("expected -8.0 for reversed times, got %v ok=%v", hours, ok)
	}
	hours, ok = WorkingHours(ptr("08:15:00"), ptr("12:45:30"))
	if !ok || math.Abs(hours-(4.5+30.0/3600)) > 1e-9 {
		t.Fatalf("unexpected hours with seconds: %v", hours)
	}
	if _, ok := WorkingHours(ptr("soon"), ptr("17:00")); ok {
		t.Fatalf("expected none for unparseable clock-in")
	}
}

func TestFormatHours(t *testing.T) {
	if got := FormatHours(8.5, true); got != "8.5h" {
		t.Fatalf("expected 8.5h, got %s", got)
	}
	if got := FormatHours(0, false); got != "-" {
		t.Fatalf("expected -, got %s", got)
	}
}

func TestAggregate(t *testing.T) {
	days := []Day{
		{Date: "2026-10-01", ClockIn: ptr("09:00"), ClockOut: ptr("17:00")},
		{Date: "2026-10-02", ClockIn: ptr("09:00"), ClockOut: ptr("13:30")},
		{Date: "2026-10-03", ClockIn: ptr("10:00")},
		{Date: "2026-10-04"},
		{Date: "2026-10-05", ClockOut: ptr("17:00")},
	}
	sum := Aggregate(days)
	want := Summary{Total: 5, Complete: 2, Incomplete: 1, Absent: 2, TotalHours: 12.5}
	if sum != want {
		t.Fatalf("expected %+v, got %+v", want, sum)
	}
	if rate := AttendanceRate(sum); rate != 40 {
		t.Fatalf("expected rate 40, got %d", rate)
	}
}

func TestAttendanceRate(t *testing.T) {
	if rate := AttendanceRate(Summary{}); rate != 0 {
		t.Fatalf("expected 0 for empty summary, got %d", rate)
	}
	if rate := AttendanceRate(Summary{Total: 3, Complete: 2}); rate != 67 {
		t.Fatalf("expected 67, got %d", rate)
	}
	if rate := AttendanceRate(Summary{Total: 8, Complete: 1}); rate != 13 {
		t.Fatalf("expected 13 (12.5 rounds up), got %d", rate)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[Status]string{
		StatusComplete:   "Complete",
		StatusIncomplete: "In Progress",
		StatusAbsent:     "Absent",
	}
	for status, want := range cases {
		if got := status.Label(); got != want {
			t.Fatalf("label %s expected %s, got %s", status, want, got)
		}
	}
}
