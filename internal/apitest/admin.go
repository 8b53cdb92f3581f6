package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"wfh/attendance/internal/attendance"
	"wfh/attendance/internal/session"
)

// DefaultPassword is given to accounts created from the admin roster.
const DefaultPassword = "password123"

type employeeResponse struct {
	ID       session.ID `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Position string     `json:"position"`
	Phone    string     `json:"phone"`
	Status   string     `json:"status"`
	Photo    string     `json:"photo,omitempty"`
}

func (e employee) response() employeeResponse {
	return employeeResponse{
		ID:       session.ID(e.ID),
		Name:     e.Name,
		Email:    e.Email,
		Position: e.Position,
		Phone:    e.Phone,
		Status:   e.Status,
		Photo:    e.Photo,
	}
}

type employeeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

// rosterLocked returns the employee accounts ordered by numeric id.
func (s *Server) rosterLocked() []employee {
	out := make([]employee, 0, len(s.employees))
	for _, e := range s.employees {
		if e.Role == session.RoleEmployee {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))

	s.mu.Lock()
	matched := []employee{}
	for _, e := range s.rosterLocked() {
		if search == "" || strings.Contains(strings.ToLower(e.Name), search) || strings.Contains(strings.ToLower(e.Email), search) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	totalPages := (len(matched) + limit - 1) / limit
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	items := make([]employeeResponse, 0, end-start)
	for _, e := range matched[start:end] {
		items = append(items, e.response())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"employees":      items,
		"totalPages":     totalPages,
		"totalEmployees": len(matched),
	})
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Name == "" || req.Email == "" || req.Position == "" {
		writeMessage(w, http.StatusBadRequest, "Name, email and position are required")
		return
	}
	s.mu.Lock()
	taken := s.byEmailLocked(req.Email) != nil
	s.mu.Unlock()
	if taken {
		writeMessage(w, http.StatusConflict, "Email already registered")
		return
	}
	status := req.Status
	if status == "" {
		status = "active"
	}
	id := s.add(employee{
		Name:     req.Name,
		Email:    req.Email,
		Password: DefaultPassword,
		Role:     session.RoleEmployee,
		Position: req.Position,
		Phone:    req.Phone,
		Status:   status,
	})
	s.mu.Lock()
	e := *s.employees[id]
	s.mu.Unlock()
	s.writeData(w, http.StatusCreated, e.response())
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok || e.Role != session.RoleEmployee {
		writeMessage(w, http.StatusNotFound, "Employee not found")
		return
	}
	if other := s.byEmailLocked(req.Email); other != nil && other.ID != id {
		writeMessage(w, http.StatusConflict, "Email already registered")
		return
	}
	e.Name, e.Email, e.Position, e.Phone = req.Name, req.Email, req.Position, req.Phone
	if req.Status != "" {
		e.Status = req.Status
	}
	s.writeData(w, http.StatusOK, e.response())
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok || e.Role != session.RoleEmployee {
		writeMessage(w, http.StatusNotFound, "Employee not found")
		return
	}
	delete(s.employees, id)
	delete(s.days, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleReport lists every recorded day across employees. A single date
// takes precedence over a range.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("startDate"), q.Get("endDate")
	if date := q.Get("date"); date != "" {
		start, end = date, date
	}
	s.mu.Lock()
	out := []attendance.Day{}
	for _, e := range s.rosterLocked() {
		for _, date := range s.sortedDatesLocked(e.ID, start, end) {
			d := s.days[e.ID][date].today().Day(date)
			d.EmployeeName = e.Name
			d.Position = e.Position
			d.EmployeePhoto = e.Photo
			out = append(out, d)
		}
	}
	s.mu.Unlock()
	s.writeData(w, http.StatusOK, out)
}
