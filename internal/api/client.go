package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"wfh/attendance/internal/apperr"
)

// TokenSource supplies the bearer credential for authenticated calls.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now for clock-in/out timestamps and "today".
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the zone used to turn instants into calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  log.Default(),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource wires the session store in after both have been built.
func (c *Client) SetTokenSource(src TokenSource) {
	c.tokens = src
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// Today is the current calendar date in the client's zone.
func (c *Client) Today() time.Time {
	return c.now().In(c.loc)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	token       string
	// failKind overrides the kind used for non-2xx answers.
	failKind apperr.Kind
}

func jsonRequest(method, path string, payload interface{}) (request, error) {
	req := request{method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, err
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(err, apperr.KindNetwork, "network_error", "Unable to reach the attendance server")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperr.Wrap(err, apperr.KindNetwork, "network_error", "Unable to reach the attendance server")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Printf("api: %s %s -> %d (request %s)", r.method, r.path, resp.StatusCode, requestID)
		return responseError(resp.StatusCode, body, r.failKind)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := decodeData(body, out); err != nil {
		return apperr.Wrap(err, apperr.KindRequest, "invalid_response", "Unexpected response from the attendance server")
	}
	return nil
}

func responseError(status int, body []byte, kind apperr.Kind) error {
	var payload errorBody
	_ = json.Unmarshal(body, &payload)
	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	if kind == "" {
		kind = apperr.KindRequest
		if status == http.StatusUnauthorized {
			kind = apperr.KindAuthentication
		}
	}
	return &apperr.Error{
		Kind:    kind,
		Code:    fmt.Sprintf("http_%d", status),
		Message: message,
		Status:  status,
	}
}

// decodeData accepts both a bare payload and one wrapped in {"data": ...}.
func decodeData(body []byte, out interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		trimmed := bytes.TrimSpace(envelope.Data)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return json.Unmarshal(trimmed, out)
		}
	}
	return json.Unmarshal(body, out)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func (c *Client) authed(r request) request {
	r.token = c.token()
	return r
}

func escape(id string) string {
	return url.PathEscape(id)
}

const dateLayout = "2006-01-02"
