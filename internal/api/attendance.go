package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"wfh/attendance/internal/attendance"
	"wfh/attendance/internal/session"
)

// Backend status codes for the two clock events.
const (
	StatusClockIn  = "masuk"
	StatusClockOut = "pulang"
)

// isoMillis matches the millisecond UTC timestamps the backend stores.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type clockRequest struct {
	EmployeeID session.ID `json:"id_karyawan"`
	Timestamp  string     `json:"tanggal"`
	Status     string     `json:"status"`
}

// Record is the backend's copy of one clock event.
type Record struct {
	ID         session.ID `json:"id"`
	EmployeeID session.ID `json:"id_karyawan"`
	Timestamp  string     `json:"tanggal"`
	Status     string     `json:"status"`
}

func (c *Client) ClockIn(ctx context.Context, userID session.ID) (Record, error) {
	return c.clock(ctx, userID, StatusClockIn)
}

func (c *Client) ClockOut(ctx context.Context, userID session.ID) (Record, error) {
	return c.clock(ctx, userID, StatusClockOut)
}

func (c *Client) clock(ctx context.Context, userID session.ID, status string) (Record, error) {
	body := clockRequest{
		EmployeeID: userID,
		Timestamp:  c.now().UTC().Format(isoMillis),
		Status:     status,
	}
	req, err := jsonRequest(http.MethodPost, "/staff/create-attendance", body)
	if err != nil {
		return Record{}, err
	}
	var out Record
	if err := c.do(ctx, c.authed(req), &out); err != nil {
		return Record{}, err
	}
	return out, nil
}

// TodayStatus fetches the clock values of the given calendar day.
func (c *Client) TodayStatus(ctx context.Context, userID session.ID, day time.Time) (attendance.Today, error) {
	req := c.authed(request{
		method: http.MethodGet,
		path:   "/attendance/today/" + escape(userID.String()),
		query:  url.Values{"date": {day.Format(dateLayout)}},
	})
	var out attendance.Today
	if err := c.do(ctx, req, &out); err != nil {
		return attendance.Today{}, err
	}
	return out, nil
}

// Summary lists one employee's days between start and end, inclusive.
func (c *Client) Summary(ctx context.Context, userID session.ID, start, end time.Time) ([]attendance.Day, error) {
	req := c.authed(request{
		method: http.MethodGet,
		path:   "/attendance/summary/" + escape(userID.String()),
		query: url.Values{
			"startDate": {start.Format(dateLayout)},
			"endDate":   {end.Format(dateLayout)},
		},
	})
	var out []attendance.Day
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []attendance.Day{}
	}
	return out, nil
}

// MonthToDate is the summary page's default range: the first of the current
// month through today.
func (c *Client) MonthToDate() (time.Time, time.Time) {
	today := c.Today()
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	return first, today
}
