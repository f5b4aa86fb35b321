// Package common defines shared constants and sentinel errors used across
// the server, transports and CLI. Callers should use errors.Is to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Authentication errors.
	ErrMissingToken   = errors.New("missing token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrBadCredentials = errors.New("bad credentials")

	// ErrTokenMalformed and ErrInvalidSignature refine ErrInvalidToken.
	ErrTokenMalformed   = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)

	// Authorization errors.
	ErrUnknownRole      = errors.New("unknown role")
	ErrPermissionDenied = errors.New("permission denied")
	ErrContextDenied    = errors.New("denied by context policy")

	// Rate limiting errors.
	ErrOriginBlocked = errors.New("origin blocked")
	ErrAccountLocked = errors.New("account locked")
	ErrThrottled     = errors.New("too many requests")

	// Threat errors.
	ErrInjectionSignature = errors.New("injection signature detected")

	// Store availability.
	ErrLedgerUnavailable = errors.New("protection ledger unavailable")
)
