// Package abac evaluates per-role attribute policies. Each role carries at
// most one policy; roles without a policy are always allowed.
package abac

import (
	"fmt"
	"time"
)

// Context holds the request attributes a policy may inspect.
type Context struct {
	Now time.Time
}

// Decision is the outcome of an evaluation. Reason is empty on allow.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Policy is a single predicate over the request context.
type Policy interface {
	Evaluate(ctx Context) Decision
}

// WorkingHours allows Monday to Friday while the local hour is in
// [Start, End).
type WorkingHours struct {
	Start    int
	End      int
	Message  string
	Location *time.Location
}

func NewWorkingHours(start, end int, message string, loc *time.Location) (*WorkingHours, error) {
	if start < 0 || end > 24 || start >= end {
		return nil, fmt.Errorf("invalid working hours window [%d, %d)", start, end)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &WorkingHours{Start: start, End: end, Message: message, Location: loc}, nil
}

func (w *WorkingHours) Evaluate(ctx Context) Decision {
	local := ctx.Now.In(w.Location)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return Deny(w.Message)
	}
	if h := local.Hour(); h < w.Start || h >= w.End {
		return Deny(w.Message)
	}
	return Allow()
}
