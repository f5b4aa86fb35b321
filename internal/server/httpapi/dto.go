package httpapi

import (
	"time"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userDTO   `json:"user"`
}

type meResponse struct {
	User        userDTO   `json:"user"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type accessResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
}

type blockRequest struct {
	Origin          string `json:"origin"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"duration_minutes"`
	Permanent       bool   `json:"permanent"`
}

type lockRequest struct {
	Username        string `json:"username"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"duration_minutes"`
}

type blockedOriginDTO struct {
	Origin       string     `json:"origin"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	Permanent    bool       `json:"permanent"`
	Reason       string     `json:"reason"`
	Actor        string     `json:"actor"`
	CreatedAt    time.Time  `json:"created_at"`
}

func blockedOriginOf(b *models.BlockedOrigin) blockedOriginDTO {
	dto := blockedOriginDTO{
		Origin:    b.Origin,
		Permanent: b.Permanent,
		Reason:    b.Reason,
		Actor:     b.Actor,
		CreatedAt: b.CreatedAt,
	}
	if !b.Permanent {
		until := b.BlockedUntil
		dto.BlockedUntil = &until
	}
	return dto
}

type accountLockDTO struct {
	Username       string    `json:"username"`
	LockedUntil    time.Time `json:"locked_until"`
	Reason         string    `json:"reason"`
	FailedAttempts int       `json:"failed_attempts"`
	CreatedAt      time.Time `json:"created_at"`
}

func accountLockOf(l *models.AccountLock) accountLockDTO {
	return accountLockDTO{
		Username:       l.Identity,
		LockedUntil:    l.LockedUntil,
		Reason:         l.Reason,
		FailedAttempts: l.FailedAttempts,
		CreatedAt:      l.CreatedAt,
	}
}

type eventDTO struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Identity    *string   `json:"identity"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

func eventOf(e *models.SecurityEvent) eventDTO {
	return eventDTO{
		ID:          e.ID,
		Origin:      e.Origin,
		Identity:    e.Identity,
		Kind:        string(e.Kind),
		Description: e.Description,
		Severity:    string(e.Severity),
		CreatedAt:   e.CreatedAt,
	}
}

type eventsResponse struct {
	Events []eventDTO `json:"events"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type statDTO struct {
	Day      string `json:"day"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}
