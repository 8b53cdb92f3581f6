package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"wfh/attendance/internal/attendance"
	"wfh/attendance/internal/session"
)

type Employee struct {
	ID       session.ID `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Position string     `json:"position"`
	Phone    string     `json:"phone,omitempty"`
	Status   string     `json:"status,omitempty"`
	Photo    string     `json:"photo,omitempty"`
}

func (e Employee) Active() bool { return e.Status == "active" }

type EmployeePage struct {
	Employees      []Employee `json:"employees"`
	TotalPages     int        `json:"totalPages"`
	TotalEmployees int        `json:"totalEmployees"`
}

// ListEmployees pages through the roster. Missing totals default to one page
// and zero employees.
func (c *Client) ListEmployees(ctx context.Context, page, limit int, search string) (EmployeePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	req := c.authed(request{
		method: http.MethodGet,
		path:   "/admin/employees",
		query: url.Values{
			"page":   {strconv.Itoa(page)},
			"limit":  {strconv.Itoa(limit)},
			"search": {search},
		},
	})
	var out EmployeePage
	if err := c.do(ctx, req, &out); err != nil {
		return EmployeePage{}, err
	}
	if out.Employees == nil {
		out.Employees = []Employee{}
	}
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	return out, nil
}

func (c *Client) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Employee{}, err
	}
	req, err := jsonRequest(http.MethodPost, "/admin/employees", in)
	if err != nil {
		return Employee{}, err
	}
	var out Employee
	if err := c.do(ctx, c.authed(req), &out); err != nil {
		return Employee{}, err
	}
	return out, nil
}

func (c *Client) UpdateEmployee(ctx context.Context, id session.ID, in EmployeeInput) (Employee, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Employee{}, err
	}
	req, err := jsonRequest(http.MethodPut, "/admin/employees/"+escape(id.String()), in)
	if err != nil {
		return Employee{}, err
	}
	var out Employee
	if err := c.do(ctx, c.authed(req), &out); err != nil {
		return Employee{}, err
	}
	return out, nil
}

func (c *Client) DeleteEmployee(ctx context.Context, id session.ID) error {
	req := c.authed(request{method: http.MethodDelete, path: "/admin/employees/" + escape(id.String())})
	return c.do(ctx, req, nil)
}

// ReportFilter selects either one Date or a StartDate..EndDate range. Empty
// fields are not sent.
type ReportFilter struct {
	Date      string
	StartDate string
	EndDate   string
}

func (f ReportFilter) values() url.Values {
	q := url.Values{}
	if f.Date != "" {
		q.Set("date", f.Date)
	}
	if f.StartDate != "" {
		q.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("endDate", f.EndDate)
	}
	return q
}

func (c *Client) AttendanceReport(ctx context.Context, f ReportFilter) ([]attendance.Day, error) {
	req := c.authed(request{method: http.MethodGet, path: "/admin/attendance/report", query: f.values()})
	var out []attendance.Day
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []attendance.Day{}
	}
	return out, nil
}

// DailyOverview loads the roster and the day's report for the admin
// dashboard.
func (c *Client) DailyOverview(ctx context.Context, date string) (attendance.DailyOverview, error) {
	page, err := c.ListEmployees(ctx, 1, 100, "")
	if err != nil {
		return attendance.DailyOverview{}, err
	}
	report, err := c.AttendanceReport(ctx, ReportFilter{Date: date})
	if err != nil {
		return attendance.DailyOverview{}, err
	}
	active := 0
	for _, e := range page.Employees {
		if e.Active() {
			active++
		}
	}
	return attendance.Overview(len(page.Employees), active, report), nil
}
