package models

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the four tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type EventKind string

const (
	EventLoginSuccess        EventKind = "login_success"
	EventLoginFailed         EventKind = "login_failed"
	EventAccountLocked       EventKind = "account_locked"
	EventAccountUnlocked     EventKind = "account_unlocked"
	EventOriginBlocked       EventKind = "origin_blocked"
	EventOriginUnblocked     EventKind = "origin_unblocked"
	EventBlockedOriginAccess EventKind = "blocked_origin_access"
	EventLockedAccountAccess EventKind = "locked_account_access"
	EventInjectionAttempt    EventKind = "injection_attempt"
	EventTokenRejected       EventKind = "token_rejected"
	EventContextDenied       EventKind = "context_denied"
	EventLedgerReset         EventKind = "ledger_reset"
	EventEventsArchived      EventKind = "events_archived"
)

// SecurityEvent is an append-only audit record.
type SecurityEvent struct {
	ID          string
	Origin      string
	Identity    *string
	Kind        EventKind
	Description string
	Severity    Severity
	CreatedAt   time.Time
}

// EventFilter selects a page of security events. Zero values mean "any".
type EventFilter struct {
	Severity Severity
	Kind     EventKind
	Origin   string
	Identity string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// EventStat is the number of events of one severity on one day (UTC).
type EventStat struct {
	Day      time.Time
	Severity Severity
	Count    int
}
