package audiocore

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// BackpressureEventKind distinguishes trigger and clear transitions.
type BackpressureEventKind int

const (
	// BackpressureTriggered fires when usage rises to the trigger threshold.
	BackpressureTriggered BackpressureEventKind = iota
	// BackpressureCleared fires when usage falls to the clear threshold.
	BackpressureCleared
)

func (k BackpressureEventKind) String() string {
	if k == BackpressureTriggered {
		return "triggered"
	}
	return "cleared"
}

// BackpressureEvent describes one hysteresis transition.
type BackpressureEvent struct {
	Kind      BackpressureEventKind
	Usage     float64
	Count     uint64        // trigger ordinal, set on Triggered
	Duration  time.Duration // time spent triggered, set on Cleared
	Timestamp time.Time
}

// BackpressureDetector turns queue-usage fractions into triggered/cleared
// events with hysteresis: it triggers at usage >= trigger and clears at
// usage <= clear, with trigger >= clear enforced so the detector cannot
// oscillate on a steady usage level.
type BackpressureDetector struct {
	trigger float64
	clear   float64

	mu            sync.Mutex
	isTriggered   bool
	lastTrigger   time.Time
	triggerCount  uint64
	totalDuration time.Duration
	onEvent       func(BackpressureEvent)
}

// NewBackpressureDetector validates thresholds and creates a detector.
func NewBackpressureDetector(trigger, clear float64) (*BackpressureDetector, error) {
	if trigger < 0 || trigger > 1 || clear < 0 || clear > 1 {
		return nil, errors.Newf("backpressure thresholds must be in [0,1], got trigger=%v clear=%v", trigger, clear).
			Component("audiocore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if trigger < clear {
		return nil, errors.Newf("backpressure trigger %v must be >= clear %v", trigger, clear).
			Component("audiocore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &BackpressureDetector{trigger: trigger, clear: clear}, nil
}

// OnEvent registers a callback invoked synchronously for every transition.
func (bd *BackpressureDetector) OnEvent(fn func(BackpressureEvent)) {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	bd.onEvent = fn
}

// Update feeds one usage observation. It returns the transition event if
// this observation caused one, nil otherwise.
func (bd *BackpressureDetector) Update(usage float64) *BackpressureEvent {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	now := time.Now()

	switch {
	case !bd.isTriggered && usage >= bd.trigger:
		bd.isTriggered = true
		bd.lastTrigger = now
		bd.triggerCount++
		ev := BackpressureEvent{
			Kind:      BackpressureTriggered,
			Usage:     usage,
			Count:     bd.triggerCount,
			Timestamp: now,
		}
		if bd.onEvent != nil {
			bd.onEvent(ev)
		}
		return &ev

	case bd.isTriggered && usage <= bd.clear:
		bd.isTriggered = false
		duration := now.Sub(bd.lastTrigger)
		bd.totalDuration += duration
		ev := BackpressureEvent{
			Kind:      BackpressureCleared,
			Usage:     usage,
			Duration:  duration,
			Timestamp: now,
		}
		if bd.onEvent != nil {
			bd.onEvent(ev)
		}
		return &ev
	}

	return nil
}

// IsTriggered reports whether the detector is currently in the triggered state.
func (bd *BackpressureDetector) IsTriggered() bool {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.isTriggered
}

// TriggerCount returns the number of trigger transitions observed.
func (bd *BackpressureDetector) TriggerCount() uint64 {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.triggerCount
}

// TotalTriggeredDuration returns the cumulative time spent triggered,
// counting only completed trigger/clear cycles.
func (bd *BackpressureDetector) TotalTriggeredDuration() time.Duration {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.totalDuration
}
