package vault

import "time"

// Unlock attempt limits: 5 failures -> 30s, 10 -> 5min, 20 -> 30min.
const (
	CooldownThreshold1 = 5
	CooldownThreshold2 = 10
	CooldownThreshold3 = 20
	CooldownDuration1  = 30 * time.Second
	CooldownDuration2  = 5 * time.Minute
	CooldownDuration3  = 30 * time.Minute
)

// LockState tracks consecutive failed unlock attempts in this process.
// It is never written to the store.
type LockState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LastAttempt    time.Time `json:"last_attempt"`
	CooldownUntil  time.Time `json:"cooldown_until"`
}

type throttle struct {
	state LockState
	now   func() time.Time
}

// remaining returns how long unlock attempts are still refused.
func (t *throttle) remaining() time.Duration {
	if t.state.CooldownUntil.IsZero() {
		return 0
	}
	if d := t.state.CooldownUntil.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

// recordFailure counts a failed attempt and returns the cooldown it
// triggered, if any.
func (t *throttle) recordFailure() time.Duration {
	now := t.now()
	t.state.FailedAttempts++
	t.state.LastAttempt = now

	var cooldown time.Duration
	switch {
	case t.state.FailedAttempts >= CooldownThreshold3:
		cooldown = CooldownDuration3
	case t.state.FailedAttempts >= CooldownThreshold2:
		cooldown = CooldownDuration2
	case t.state.FailedAttempts >= CooldownThreshold1:
		cooldown = CooldownDuration1
	}
	if cooldown > 0 {
		t.state.CooldownUntil = now.Add(cooldown)
	}
	return cooldown
}

func (t *throttle) reset() {
	t.state = LockState{}
}
