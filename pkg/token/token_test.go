package token

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adminguard/adminguard/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmail = "admin@example.com"

var testCfg = Config{
	Throttle:   60 * time.Second,
	Expiration: 120 * time.Second,
	MaxRetries: 3,
}

// fixedGen returns the same code on every call.
type fixedGen struct{ code string }

func (g fixedGen) Generate() (string, error) { return g.code, nil }

// newTestManager returns a manager on a fake clock that can be advanced
// by the test.
func newTestManager(cfg Config) (*Manager, *time.Time) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m := New(fixedGen{code: "12345"}, cfg)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestVerifyCorrectCode(t *testing.T) {
	m, _ := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))

	assert.NoError(t, m.Verify("12345"))
}

func TestVerifyBeforeIssue(t *testing.T) {
	m, _ := newTestManager(testCfg)
	assert.ErrorIs(t, m.Verify("12345"), ErrNotIssued)
}

func TestVerifyExpired(t *testing.T) {
	m, now := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))

	*now = now.Add(121 * time.Second)

	// Even the correct code is refused after expiry.
	assert.ErrorIs(t, m.Verify("12345"), ErrExpired)
	assert.ErrorIs(t, m.Verify("99999"), ErrExpired)
}

func TestVerifyRetryBudget(t *testing.T) {
	m, _ := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))

	// max_retries=3: the first two wrong codes are incorrect attempts,
	// the third exhausts the budget.
	assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)
	assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)
	assert.ErrorIs(t, m.Verify("00000"), ErrNoMoreRetries)
	assert.Equal(t, 3, m.Attempts(), "attempts must not exceed max retries")

	// Exhausted: even the correct code is refused until a fresh issue.
	assert.ErrorIs(t, m.Verify("12345"), ErrNoMoreRetries)
	assert.Equal(t, 3, m.Attempts())
}

func TestExpiryPrecedesRetryBudget(t *testing.T) {
	m, now := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))

	assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)
	assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)
	assert.ErrorIs(t, m.Verify("00000"), ErrNoMoreRetries)

	*now = now.Add(121 * time.Second)
	assert.ErrorIs(t, m.Verify("00000"), ErrExpired)
}

func TestIssueThrottled(t *testing.T) {
	m, now := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))

	st, _ := m.State()
	first := st

	// Too soon: the token must be left untouched.
	*now = now.Add(30 * time.Second)
	assert.ErrorIs(t, m.Issue(testEmail), ErrThrottled)
	st, _ = m.State()
	assert.Equal(t, first, st, "throttled issue changed the token")
	assert.Equal(t, 30*time.Second, m.ThrottleWait())

	// After the throttle window a fresh issue is accepted and resets
	// the attempt counter and the expiration clock.
	assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)
	*now = now.Add(31 * time.Second)
	require.NoError(t, m.Issue(testEmail))
	st, _ = m.State()
	assert.Equal(t, 0, st.Attempts)
	assert.Equal(t, *now, st.IssuedAt)

	// The accepted issue restarts the throttle clock in full, and the
	// wait runs down to zero as the window passes.
	assert.Equal(t, testCfg.Throttle, m.ThrottleWait())
	*now = now.Add(testCfg.Throttle)
	assert.Equal(t, time.Duration(0), m.ThrottleWait())
}

func TestForceIssueBypassesThrottle(t *testing.T) {
	m, _ := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))
	require.NoError(t, m.ForceIssue(testEmail))
}

func TestFreshIssueClearsExhaustion(t *testing.T) {
	m, now := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))

	for i := 0; i < 3; i++ {
		m.Verify("00000")
	}
	assert.ErrorIs(t, m.Verify("12345"), ErrNoMoreRetries)

	*now = now.Add(61 * time.Second)
	require.NoError(t, m.Issue(testEmail))
	assert.NoError(t, m.Verify("12345"))
}

func TestZeroConfigDisablesChecks(t *testing.T) {
	m, now := newTestManager(Config{})
	require.NoError(t, m.Issue(testEmail))

	// No throttle.
	require.NoError(t, m.Issue(testEmail))

	// No expiry.
	*now = now.Add(24 * time.Hour)
	assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)

	// No retry cap.
	for i := 0; i < 50; i++ {
		assert.ErrorIs(t, m.Verify("00000"), ErrIncorrect)
	}
	assert.NoError(t, m.Verify("12345"))
}

func TestStateRoundTrip(t *testing.T) {
	m, now := newTestManager(testCfg)
	require.NoError(t, m.Issue(testEmail))
	m.Verify("00000")

	st, issued := m.State()
	require.True(t, issued)

	// The snapshot travels through the session as JSON.
	b, err := json.Marshal(st)
	require.NoError(t, err)
	var got State
	require.NoError(t, json.Unmarshal(b, &got))

	g, err := otp.NewRandom(otp.RandomOpt{DigitsOnly: true})
	require.NoError(t, err)
	m2 := Restore(g, testCfg, got)
	m2.now = func() time.Time { return *now }

	assert.Equal(t, 1, m2.Attempts())
	assert.ErrorIs(t, m2.Issue(testEmail), ErrThrottled)
	assert.NoError(t, m2.Verify("12345"))
}

func TestRestoreEmptyState(t *testing.T) {
	m := Restore(fixedGen{code: "12345"}, testCfg, State{})
	assert.ErrorIs(t, m.Verify("12345"), ErrNotIssued)
	assert.NoError(t, m.Issue(testEmail), "empty state must not throttle the first issue")
}
