package session

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotExist is thrown when a session (requested by ID) does not exist
// or has expired.
var ErrNotExist = errors.New("the session does not exist")

// Session is one admin user's server-side session record. Token carries
// the JSON-serialised token.State of the pending OTP verification;
// empty means no token has been issued.
type Session struct {
	ID       string        `redis:"-" json:"id"`
	Login    string        `redis:"login" json:"login"`
	Email    string        `redis:"email" json:"email"`
	Verified bool          `redis:"verified" json:"verified"`
	NextURL  string        `redis:"next_url" json:"next_url"`
	Token    string        `redis:"token" json:"token"`
	TTL      time.Duration `redis:"-" json:"-"`
}

// SetToken serialises a token snapshot into the session.
func (s *Session) SetToken(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Token = string(b)
	return nil
}

// GetToken deserialises the token snapshot stored in the session into
// out and reports whether one was stored at all.
func (s *Session) GetToken(out interface{}) (bool, error) {
	if s.Token == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(s.Token), out); err != nil {
		return false, err
	}
	return true, nil
}

// Store represents a storage backend where session data is kept.
type Store interface {
	// Put writes a session against an ID, (re)stamping its TTL.
	Put(id string, s Session) error

	// Get retrieves the session saved against an ID.
	Get(id string) (Session, error)

	// Delete removes the session saved against an ID.
	Delete(id string) error

	// Ping checks if the store is reachable.
	Ping() error
}
