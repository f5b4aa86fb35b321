package models

import "time"

// FailedAttempt is one failed credential check. Identity is nil when no
// username was submitted.
type FailedAttempt struct {
	Origin      string
	Identity    *string
	AttemptedAt time.Time
}

// BlockedOrigin is keyed by Origin. A permanent block ignores BlockedUntil.
type BlockedOrigin struct {
	Origin       string
	BlockedUntil time.Time
	Permanent    bool
	Reason       string
	Actor        string
	CreatedAt    time.Time
}

// ActiveAt reports whether the block is in force at now. Expired rows are
// inert, they are never swept.
func (b *BlockedOrigin) ActiveAt(now time.Time) bool {
	if b.Permanent {
		return true
	}
	return now.Before(b.BlockedUntil)
}

// AccountLock is keyed by Identity (username).
type AccountLock struct {
	Identity       string
	LockedUntil    time.Time
	Reason         string
	FailedAttempts int
	CreatedAt      time.Time
}

func (l *AccountLock) ActiveAt(now time.Time) bool {
	return now.Before(l.LockedUntil)
}
