package abac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const msg = "outside working hours"

// 2024-05-15 is a Wednesday.
func at(day, hour, min int) time.Time {
	return time.Date(2024, 5, day, hour, min, 0, 0, time.UTC)
}

func newWorkingHours(t *testing.T) *WorkingHours {
	t.Helper()
	w, err := NewWorkingHours(8, 23, msg, time.UTC)
	require.NoError(t, err)
	return w
}

func TestWorkingHours(t *testing.T) {
	w := newWorkingHours(t)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"wednesday 10:00", at(15, 10, 0), true},
		{"wednesday 23:30", at(15, 23, 30), false},
		{"saturday 10:00", at(18, 10, 0), false},
		{"sunday 12:00", at(19, 12, 0), false},
		{"monday 08:00", at(13, 8, 0), true},
		{"friday 07:59", at(17, 7, 59), false},
		{"friday 22:59", at(17, 22, 59), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := w.Evaluate(Context{Now: tt.now})
			assert.Equal(t, tt.want, d.Allowed)
			if !tt.want {
				assert.Equal(t, msg, d.Reason)
			}
		})
	}
}

func TestWorkingHours_Location(t *testing.T) {
	loc := time.FixedZone("CET", 2*60*60)
	w, err := NewWorkingHours(8, 23, msg, loc)
	require.NoError(t, err)

	// 21:30 UTC on Wednesday is 23:30 local.
	assert.False(t, w.Evaluate(Context{Now: at(15, 21, 30)}).Allowed)
	// 06:30 UTC is 08:30 local.
	assert.True(t, w.Evaluate(Context{Now: at(15, 6, 30)}).Allowed)
}

func TestNewWorkingHours_Invalid(t *testing.T) {
	_, err := NewWorkingHours(23, 8, msg, nil)
	assert.Error(t, err)
	_, err = NewWorkingHours(-1, 8, msg, nil)
	assert.Error(t, err)
	_, err = NewWorkingHours(0, 25, msg, nil)
	assert.Error(t, err)
}

func TestEvaluator(t *testing.T) {
	e := NewEvaluator()
	e.Attach("Operater", newWorkingHours(t))

	assert.False(t, e.Evaluate("Operater", Context{Now: at(18, 10, 0)}).Allowed)
	assert.True(t, e.Evaluate("Analitičar", Context{Now: at(18, 10, 0)}).Allowed)
}
