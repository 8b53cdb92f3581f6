package apitest

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"wfh/attendance/internal/attendance"
	"wfh/attendance/internal/session"
)

type clockRequest struct {
	EmployeeID session.ID `json:"id_karyawan"`
	Timestamp  string     `json:"tanggal"`
	Status     string     `json:"status"`
}

type clockRecord struct {
	ID         string     `json:"id"`
	EmployeeID session.ID `json:"id_karyawan"`
	Timestamp  string     `json:"tanggal"`
	Status     string     `json:"status"`
}

func (s *Server) handleCreateAttendance(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	id := req.EmployeeID.String()
	if !selfOrAdmin(r, id) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	at, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid timestamp")
		return
	}
	local := at.In(s.cfg.Location)
	date, clock := local.Format("2006-01-02"), local.Format("15:04:05")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Employee not found")
		return
	}
	d := s.dayLocked(id, date, false)
	switch req.Status {
	case "masuk":
		if d != nil && d.ClockIn != "" {
			writeMessage(w, http.StatusBadRequest, "Already clocked in today")
			return
		}
		d = s.dayLocked(id, date, true)
		d.ClockIn = clock
	case "pulang":
		if d == nil || d.ClockIn == "" {
			writeMessage(w, http.StatusBadRequest, "You must clock in first")
			return
		}
		if d.ClockOut != "" {
			writeMessage(w, http.StatusBadRequest, "Already clocked out today")
			return
		}
		d.ClockOut = clock
	default:
		writeMessage(w, http.StatusBadRequest, "Invalid status")
		return
	}
	s.writeData(w, http.StatusCreated, clockRecord{
		ID:         newID(),
		EmployeeID: req.EmployeeID,
		Timestamp:  req.Timestamp,
		Status:     req.Status,
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !selfOrAdmin(r, id) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.cfg.Now().In(s.cfg.Location).Format("2006-01-02")
	}
	s.mu.Lock()
	d := s.dayLocked(id, date, false)
	var out attendance.Today
	if d != nil {
		out = d.today()
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !selfOrAdmin(r, id) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	q := r.URL.Query()
	s.mu.Lock()
	out := []attendance.Day{}
	for _, date := range s.sortedDatesLocked(id, q.Get("startDate"), q.Get("endDate")) {
		out = append(out, s.days[id][date].today().Day(date))
	}
	s.mu.Unlock()
	s.writeData(w, http.StatusOK, out)
}

func (d *day) today() attendance.Today {
	var out attendance.Today
	if d.ClockIn != "" {
		v := d.ClockIn
		out.ClockIn = &v
	}
	if d.ClockOut != "" {
		v := d.ClockOut
		out.ClockOut = &v
	}
	return out
}

type profileResponse struct {
	ID         session.ID `json:"id"`
	EmployeeID session.ID `json:"id_karyawan"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Position   string     `json:"position"`
	NoHP       string     `json:"no_hp"`
	Photo      string     `json:"foto"`
	Status     string     `json:"status"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !selfOrAdmin(r, id) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	s.mu.Lock()
	e, ok := s.employees[id]
	var found employee
	if ok {
		found = *e
	}
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Employee not found")
		return
	}
	s.writeData(w, http.StatusOK, profileResponse{
		ID:         session.ID(found.ID),
		EmployeeID: session.ID(found.ID),
		Name:       found.Name,
		Email:      found.Email,
		Position:   found.Position,
		NoHP:       found.Phone,
		Photo:      found.Photo,
		Status:     found.Status,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !selfOrAdmin(r, id) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	if err := r.ParseMultipartForm(6 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	photo := ""
	if file, header, err := r.FormFile("photo"); err == nil {
		_, _ = io.Copy(io.Discard, file)
		file.Close()
		photo = "/uploads/" + newID() + strings.ToLower(filepath.Ext(header.Filename))
	}

	s.mu.Lock()
	e, ok := s.employees[id]
	if ok {
		if values, set := r.MultipartForm.Value["phone"]; set && len(values) > 0 {
			e.Phone = values[0]
		}
		if photo != "" {
			e.Photo = photo
		}
	}
	var found employee
	if ok {
		found = *e
	}
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Employee not found")
		return
	}
	s.writeData(w, http.StatusOK, found.user())
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if claims := claimsFromContext(r.Context()); claims == nil || claims.UserID != id {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Employee not found")
		return
	}
	if e.Password != req.OldPassword {
		writeMessage(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	e.Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
