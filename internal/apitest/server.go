// Package apitest is an in-memory stand-in for the attendance backend. It
// speaks the same routes and payloads so the client can be tested end to end
// over real HTTP.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"wfh/attendance/internal/session"
)

type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	// Location turns clock timestamps into calendar dates and times of day.
	Location *time.Location
	Now      func() time.Time
	// Envelope wraps successful list and object payloads in {"data": ...}.
	Envelope bool
}

type Server struct {
	cfg      Config
	registry *prometheus.Registry
	served   *prometheus.CounterVec

	mu        sync.Mutex
	nextID    int
	employees map[string]*employee
	days      map[string]map[string]*day
	revoked   map[string]bool
	requests  []string
}

type employee struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     session.Role
	Position string
	Phone    string
	Status   string
	Photo    string
}

type day struct {
	ClockIn  string
	ClockOut string
}

func NewServer(cfg Config) *Server {
	if cfg.Secret == "" {
		cfg.Secret = "test-secret"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "wfh-attendance"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	served := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wfh_backend_requests_total",
		Help: "Requests handled by the fake attendance backend.",
	}, []string{"method", "route", "status"})
	registry := prometheus.NewRegistry()
	registry.MustRegister(served)
	return &Server{
		cfg:       cfg,
		registry:  registry,
		served:    served,
		employees: map[string]*employee{},
		days:      map[string]map[string]*day{},
		revoked:   map[string]bool{},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordRequestID, s.countRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Post("/auth/staff/login", s.handleLogin(session.RoleEmployee))
	r.Post("/auth/admin/login", s.handleLogin(session.RoleAdmin))
	r.Post("/auth/register", s.handleRegister)
	r.With(s.authMiddleware).Get("/auth/verify", s.handleVerify)

	r.With(s.authMiddleware).Post("/staff/create-attendance", s.handleCreateAttendance)
	r.With(s.authMiddleware).Get("/staff/profile/{id}", s.handleGetProfile)
	r.With(s.authMiddleware).Get("/attendance/today/{id}", s.handleToday)
	r.With(s.authMiddleware).Get("/attendance/summary/{id}", s.handleSummary)
	r.With(s.authMiddleware).Put("/employees/{id}", s.handleUpdateProfile)
	r.With(s.authMiddleware).Put("/employees/{id}/password", s.handleChangePassword)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware, s.adminOnly)
		r.Get("/admin/employees", s.handleListEmployees)
		r.Post("/admin/employees", s.handleCreateEmployee)
		r.Put("/admin/employees/{id}", s.handleUpdateEmployee)
		r.Delete("/admin/employees/{id}", s.handleDeleteEmployee)
		r.Get("/admin/attendance/report", s.handleReport)
	})

	return r
}

// AddEmployee seeds an account and returns its id.
func (s *Server) AddEmployee(name, email, password, position string) string {
	return s.add(employee{Name: name, Email: email, Password: password, Role: session.RoleEmployee, Position: position, Status: "active"})
}

func (s *Server) AddAdmin(name, email, password string) string {
	return s.add(employee{Name: name, Email: email, Password: password, Role: session.RoleAdmin, Position: "Administrator", Status: "active"})
}

func (s *Server) add(e employee) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = strconv.Itoa(s.nextID)
	s.employees[e.ID] = &e
	return e.ID
}

// SetDay records clock values directly, bypassing the clock endpoint.
func (s *Server) SetDay(employeeID, date, clockIn, clockOut string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dayLocked(employeeID, date, true)
	d := s.days[employeeID][date]
	d.ClockIn, d.ClockOut = clockIn, clockOut
}

// Revoke makes the backend reject a previously issued token.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// RequestIDs lists the X-Request-ID headers seen so far, in order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) recordRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Header.Get("X-Request-ID"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// countRequests labels by route pattern so ids do not blow up cardinality.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.served.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

// Served reports how many requests matched a route pattern with the given
// status.
func (s *Server) Served(method, route string, status int) float64 {
	m := &dto.Metric{}
	if err := s.served.WithLabelValues(method, route, strconv.Itoa(status)).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}
		claims, err := ParseToken(s.cfg.Secret, s.cfg.Issuer, s.cfg.Now(), token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.mu.Lock()
		revoked := s.revoked[token]
		_, exists := s.employees[claims.UserID]
		s.mu.Unlock()
		if revoked || !exists {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != string(session.RoleAdmin) {
			writeMessage(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// selfOrAdmin lets employees touch only their own records.
func selfOrAdmin(r *http.Request, id string) bool {
	claims := claimsFromContext(r.Context())
	return claims != nil && (claims.UserID == id || claims.Role == string(session.RoleAdmin))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request")
			return
		}
		s.mu.Lock()
		e := s.byEmailLocked(req.Email)
		var found employee
		if e != nil {
			found = *e
		}
		s.mu.Unlock()
		if e == nil || found.Password != req.Password {
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if found.Role != role {
			writeMessage(w, http.StatusForbidden, "Access denied")
			return
		}
		if found.Status != "" && found.Status != "active" {
			writeMessage(w, http.StatusForbidden, "Account is inactive")
			return
		}
		token, err := NewAccessToken(s.cfg.Secret, s.cfg.Issuer, s.cfg.TokenTTL, s.cfg.Now(), Claims{
			UserID: found.ID,
			Role:   string(found.Role),
		})
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Server error")
			return
		}
		s.writeData(w, http.StatusOK, session.Session{Token: token, User: found.user()})
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	s.mu.Lock()
	e := *s.employees[claims.UserID]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "user": e.user()})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	taken := s.byEmailLocked(req.Email) != nil
	s.mu.Unlock()
	if taken {
		writeMessage(w, http.StatusConflict, "Email already registered")
		return
	}
	id := s.add(employee{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     session.RoleEmployee,
		Position: req.Position,
		Phone:    req.Phone,
		Status:   "active",
	})
	s.mu.Lock()
	e := *s.employees[id]
	s.mu.Unlock()
	s.writeData(w, http.StatusCreated, e.user())
}

func (s *Server) byEmailLocked(email string) *employee {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range s.employees {
		if strings.ToLower(e.Email) == email {
			return e
		}
	}
	return nil
}

func (e employee) user() session.User {
	return session.User{
		ID:         session.ID(e.ID),
		EmployeeID: session.ID(e.ID),
		Name:       e.Name,
		Email:      e.Email,
		Role:       e.Role,
		PhotoURL:   e.Photo,
		Position:   e.Position,
		Phone:      e.Phone,
	}
}

func (s *Server) dayLocked(employeeID, date string, create bool) *day {
	byDate, ok := s.days[employeeID]
	if !ok {
		if !create {
			return nil
		}
		byDate = map[string]*day{}
		s.days[employeeID] = byDate
	}
	d, ok := byDate[date]
	if !ok && create {
		d = &day{}
		byDate[date] = d
	}
	return d
}

// sortedDates returns the dates of one employee inside [start, end]. Empty
// bounds are open.
func (s *Server) sortedDatesLocked(employeeID, start, end string) []string {
	dates := make([]string, 0, len(s.days[employeeID]))
	for date := range s.days[employeeID] {
		if start != "" && date < start {
			continue
		}
		if end != "" && date > end {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

func newID() string {
	return uuid.NewString()
}

// HTTP helpers

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData writes payload bare or inside the data envelope, as configured.
func (s *Server) writeData(w http.ResponseWriter, status int, payload interface{}) {
	if s.cfg.Envelope {
		writeJSON(w, status, map[string]interface{}{"data": payload})
		return
	}
	writeJSON(w, status, payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
