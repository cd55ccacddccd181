// Package token implements the OTP verification policy: issuance
// throttling, expiry, and the incorrect-attempt budget for one pending
// verification.
package token

import (
	"errors"
	"time"

	"github.com/adminguard/adminguard/pkg/otp"
)

var (
	// ErrThrottled is returned by Issue when a token was issued less
	// than the throttle duration ago.
	ErrThrottled = errors.New("a code was sent recently")

	// ErrExpired is returned by Verify when the token is older than the
	// configured expiration.
	ErrExpired = errors.New("the code has expired")

	// ErrIncorrect is returned by Verify when the submitted code does
	// not match.
	ErrIncorrect = errors.New("incorrect code")

	// ErrNoMoreRetries is returned by Verify once the incorrect-attempt
	// budget is spent. Only a fresh Issue clears it.
	ErrNoMoreRetries = errors.New("too many incorrect attempts")

	// ErrNotIssued is returned by Verify when no token has been issued.
	ErrNotIssued = errors.New("no code has been issued")
)

// State is the serialisable snapshot of a pending verification. It is
// what gets stashed in the user's session between requests.
type State struct {
	OTP      string    `json:"otp"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
	Attempts int       `json:"attempts"`
}

// Config holds the policy knobs. Zero values disable the corresponding
// check: no throttle, no expiry, unlimited retries.
type Config struct {
	Throttle   time.Duration
	Expiration time.Duration
	MaxRetries int
}

// Manager decides whether a new OTP may be issued and whether a
// submitted code is accepted. It is not safe for concurrent use; one
// manager serves one session for the duration of one request.
type Manager struct {
	cfg    Config
	gen    otp.Generator
	state  State
	issued bool

	now func() time.Time
}

// New returns a Manager with no token issued.
func New(gen otp.Generator, cfg Config) *Manager {
	return &Manager{
		cfg: cfg,
		gen: gen,
		now: time.Now,
	}
}

// Restore returns a Manager carrying a previously issued token,
// typically loaded from session storage.
func Restore(gen otp.Generator, cfg Config, state State) *Manager {
	m := New(gen, cfg)
	m.state = state
	m.issued = state.OTP != ""
	return m
}

// Issue generates a new OTP for the given e-mail address, stamps the
// issue time, and resets the attempt counter. It refuses with
// ErrThrottled if the previous token was issued less than the throttle
// duration ago, leaving the existing token untouched. Issuing restarts
// the expiration clock.
func (m *Manager) Issue(email string) error {
	if m.issued && m.cfg.Throttle > 0 && m.sinceIssue() < m.cfg.Throttle {
		return ErrThrottled
	}
	return m.ForceIssue(email)
}

// ForceIssue is Issue without the throttle check.
func (m *Manager) ForceIssue(email string) error {
	code, err := m.gen.Generate()
	if err != nil {
		return err
	}

	m.state = State{
		OTP:      code,
		Email:    email,
		IssuedAt: m.now(),
	}
	m.issued = true
	return nil
}

// Verify checks the submitted code against the issued token and returns
// nil if it is accepted. The expiry check precedes the match check. A
// mismatch increments the attempt counter; the attempt that exhausts
// the retry budget returns ErrNoMoreRetries instead of ErrIncorrect,
// and every attempt after that is refused with ErrNoMoreRetries until
// a fresh Issue.
func (m *Manager) Verify(code string) error {
	if !m.issued {
		return ErrNotIssued
	}

	if m.cfg.Expiration > 0 && m.sinceIssue() > m.cfg.Expiration {
		return ErrExpired
	}

	if m.cfg.MaxRetries > 0 && m.state.Attempts >= m.cfg.MaxRetries {
		return ErrNoMoreRetries
	}

	if m.state.OTP != code {
		m.state.Attempts++
		if m.cfg.MaxRetries > 0 && m.state.Attempts >= m.cfg.MaxRetries {
			return ErrNoMoreRetries
		}
		return ErrIncorrect
	}

	return nil
}

// State returns the current token snapshot and whether a token has
// been issued at all.
func (m *Manager) State() (State, bool) {
	return m.state, m.issued
}

// Attempts returns the number of incorrect attempts made against the
// current token.
func (m *Manager) Attempts() int {
	return m.state.Attempts
}

// ThrottleWait returns how long the caller has to wait before Issue
// will be accepted again. Zero means Issue may be called now.
func (m *Manager) ThrottleWait() time.Duration {
	if !m.issued || m.cfg.Throttle == 0 {
		return 0
	}
	if w := m.cfg.Throttle - m.sinceIssue(); w > 0 {
		return w
	}
	return 0
}

func (m *Manager) sinceIssue() time.Duration {
	return m.now().Sub(m.state.IssuedAt)
}
