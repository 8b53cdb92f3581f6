package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id": 42, "id_karyawan": "EMP-9", "name": "Siti", "role": "employee"}`), &u); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if u.ID != "42" || u.EmployeeID != "EMP-9" {
		t.Fatalf("unexpected ids %q %q", u.ID, u.EmployeeID)
	}
	if u.ProfileID() != "EMP-9" {
		t.Fatalf("expected employee id as profile id")
	}

	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["id"].(float64); !ok {
		t.Fatalf("expected numeric id to stay numeric, got %T", raw["id"])
	}
	if raw["id_karyawan"] != "EMP-9" {
		t.Fatalf("expected string employee id")
	}

	var nullID ID
	if err := json.Unmarshal([]byte("null"), &nullID); err != nil || nullID != "" {
		t.Fatalf("expected empty id for null")
	}
}

func TestSessionValid(t *testing.T) {
	if (Session{Token: "t"}).Valid() {
		t.Fatalf("expected session without user to be invalid")
	}
	if (Session{User: User{ID: "1"}}).Valid() {
		t.Fatalf("expected session without token to be invalid")
	}
	if !(Session{Token: "t", User: User{ID: "1"}}).Valid() {
		t.Fatalf("expected full session to be valid")
	}
}

func TestSessionExpiresAt(t *testing.T) {
	exp := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	got, ok := Session{Token: token}.ExpiresAt()
	if !ok || !got.Equal(exp) {
		t.Fatalf("expected %s, got %s ok=%v", exp, got, ok)
	}
	if _, ok := (Session{Token: "opaque"}).ExpiresAt(); ok {
		t.Fatalf("expected no expiry for opaque token")
	}
}

func TestSnapshotViews(t *testing.T) {
	s := Snapshot{State: StateAuthenticated, Session: &Session{Token: "t", User: User{ID: "1", Role: RoleAdmin}}}
	if !s.Authenticated() || !s.Admin() {
		t.Fatalf("expected authenticated admin")
	}
	if (Snapshot{State: StateRestoring}).Authenticated() {
		t.Fatalf("restoring is not authenticated")
	}
	if !RoleEmployee.Valid() || Role("owner").Valid() {
		t.Fatalf("unexpected role validity")
	}
	if StateAnonymous.String() != "anonymous" {
		t.Fatalf("unexpected state name")
	}
}
