package storage

import (
	"encoding/json"
	"fmt"

	"wfh/attendance/internal/session"
)

const (
	tokenEntry = "token"
	userEntry  = "user"
)

// encodeEntries splits a session into the two persisted entries: the opaque
// token and the user serialized as JSON.
func encodeEntries(s session.Session) (token, user string, err error) {
	if !s.Valid() {
		return "", "", fmt.Errorf("refusing to persist incomplete session")
	}
	data, err := json.Marshal(s.User)
	if err != nil {
		return "", "", fmt.Errorf("encode user: %w", err)
	}
	return s.Token, string(data), nil
}

// decodeEntries rebuilds a session. A missing entry means no session; a
// user entry that is not valid JSON is an error.
func decodeEntries(token, user string) (session.Session, bool, error) {
	if token == "" || user == "" {
		return session.Session{}, false, nil
	}
	var u session.User
	if err := json.Unmarshal([]byte(user), &u); err != nil {
		return session.Session{}, false, fmt.Errorf("decode user: %w", err)
	}
	s := session.Session{Token: token, User: u}
	if !s.Valid() {
		return session.Session{}, false, nil
	}
	return s, true, nil
}
