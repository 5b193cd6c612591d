package alarm

import (
	"fmt"
	"math"
)

// Thresholds are the hysteresis bounds: the alarm triggers below TriggerC and
// resets above ResetC.
type Thresholds struct {
	TriggerC float64
	ResetC   float64
}

// Range is the permitted span for thresholds.
type Range struct {
	MinC float64
	MaxC float64
}

// ValidationError reports malformed operator input. The previous value is kept.
type ValidationError struct {
	// Field names the rejected input.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Clamp limits both bounds to r.
func (t Thresholds) Clamp(r Range) Thresholds {
	return Thresholds{
		TriggerC: clamp(t.TriggerC, r.MinC, r.MaxC),
		ResetC:   clamp(t.ResetC, r.MinC, r.MaxC),
	}
}

// Validate clamps t to r and checks the band is not inverted.
func (t Thresholds) Validate(r Range) (Thresholds, error) {
	if math.IsNaN(t.TriggerC) || math.IsInf(t.TriggerC, 0) {
		return t, &ValidationError{Field: "trigger_c", Reason: "not a finite number"}
	}

	if math.IsNaN(t.ResetC) || math.IsInf(t.ResetC, 0) {
		return t, &ValidationError{Field: "reset_c", Reason: "not a finite number"}
	}

	clamped := t.Clamp(r)
	if clamped.ResetC < clamped.TriggerC {
		return t, &ValidationError{
			Field:  "reset_c",
			Reason: fmt.Sprintf("%.1f is below trigger %.1f", clamped.ResetC, clamped.TriggerC),
		}
	}

	return clamped, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
