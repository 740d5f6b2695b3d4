// Package window resolves relative look-back requests into absolute query intervals.
package window

import (
	"math"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
)

// Window is the [Start, End) span a metric query covers.
// An Empty window means no query should be issued at all.
type Window struct {
	Start time.Time
	End   time.Time
	Empty bool
}

// Resolve builds the window ending at now and reaching back days+hours+minutes.
// An all-zero request yields the Empty sentinel. Negative spans are rejected.
func Resolve(days, hours, minutes int, now time.Time) (Window, error) {
	if days < 0 || hours < 0 || minutes < 0 {
		return Window{}, apperr.Validation("days, hours and minutes must not be negative")
	}

	end := now.UTC()
	span, ok := lookback(days, hours, minutes)
	if !ok {
		return Window{}, apperr.Validation("requested window is too large")
	}

	if span == 0 {
		return Window{Start: end, End: end, Empty: true}, nil
	}

	return Window{Start: end.Add(-span), End: end}, nil
}

// lookback sums the parts, reporting false if the total does not fit in a time.Duration.
func lookback(days, hours, minutes int) (time.Duration, bool) {
	parts := []struct {
		n    int
		unit time.Duration
	}{
		{days, 24 * time.Hour},
		{hours, time.Hour},
		{minutes, time.Minute},
	}

	var total time.Duration
	for _, p := range parts {
		if int64(p.n) > math.MaxInt64/int64(p.unit) {
			return 0, false
		}
		d := time.Duration(p.n) * p.unit
		if total > math.MaxInt64-d {
			return 0, false
		}
		total += d
	}
	return total, true
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
