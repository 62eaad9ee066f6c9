package audiocore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

func TestBackpressureThresholdValidation(t *testing.T) {
	t.Parallel()

	_, err := NewBackpressureDetector(0.5, 0.9)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = NewBackpressureDetector(1.5, 0.5)
	assert.Error(t, err)
	_, err = NewBackpressureDetector(0.9, -0.1)
	assert.Error(t, err)

	_, err = NewBackpressureDetector(0.9, 0.7)
	assert.NoError(t, err)
}

func TestBackpressureHysteresisSequence(t *testing.T) {
	t.Parallel()

	bd, err := NewBackpressureDetector(0.9, 0.7)
	require.NoError(t, err)

	var events []BackpressureEvent
	bd.OnEvent(func(ev BackpressureEvent) { events = append(events, ev) })

	// Rises through the band, hovers inside it, then falls out. Only the
	// crossing observations transition.
	transitions := map[float64]*BackpressureEvent{}
	for _, usage := range []float64{0.5, 0.95, 0.85, 0.88, 0.75, 0.65} {
		if ev := bd.Update(usage); ev != nil {
			transitions[usage] = ev
		}
	}

	require.Len(t, transitions, 2)

	triggered := transitions[0.95]
	require.NotNil(t, triggered)
	assert.Equal(t, BackpressureTriggered, triggered.Kind)
	assert.InDelta(t, 0.95, triggered.Usage, 1e-9)
	assert.Equal(t, uint64(1), triggered.Count)

	cleared := transitions[0.65]
	require.NotNil(t, cleared)
	assert.Equal(t, BackpressureCleared, cleared.Kind)
	assert.InDelta(t, 0.65, cleared.Usage, 1e-9)
	assert.GreaterOrEqual(t, cleared.Duration, time.Duration(0))

	assert.Equal(t, uint64(1), bd.TriggerCount())
	assert.False(t, bd.IsTriggered())
	assert.Len(t, events, 2)
	assert.Equal(t, BackpressureTriggered, events[0].Kind)
	assert.Equal(t, BackpressureCleared, events[1].Kind)
}

func TestBackpressureEqualThresholdsNoOscillation(t *testing.T) {
	t.Parallel()

	bd, err := NewBackpressureDetector(0.8, 0.8)
	require.NoError(t, err)

	// At exactly the shared threshold the detector alternates trigger and
	// clear on consecutive observations but never double-fires.
	ev := bd.Update(0.8)
	require.NotNil(t, ev)
	assert.Equal(t, BackpressureTriggered, ev.Kind)

	ev = bd.Update(0.8)
	require.NotNil(t, ev)
	assert.Equal(t, BackpressureCleared, ev.Kind)

	// Steady usage above trigger or below clear does not retrigger.
	ev = bd.Update(0.9)
	require.NotNil(t, ev)
	assert.Nil(t, bd.Update(0.9))
	assert.Nil(t, bd.Update(0.95))
	assert.True(t, bd.IsTriggered())
}

func TestBackpressureTriggeredDuration(t *testing.T) {
	t.Parallel()

	bd, err := NewBackpressureDetector(0.9, 0.5)
	require.NoError(t, err)

	bd.Update(0.95)
	time.Sleep(5 * time.Millisecond)
	ev := bd.Update(0.4)
	require.NotNil(t, ev)

	assert.GreaterOrEqual(t, ev.Duration, 5*time.Millisecond)
	assert.Equal(t, ev.Duration, bd.TotalTriggeredDuration())

	// Second cycle accumulates.
	bd.Update(0.95)
	bd.Update(0.4)
	assert.Greater(t, bd.TotalTriggeredDuration(), ev.Duration)
	assert.Equal(t, uint64(2), bd.TriggerCount())
}

func TestBackpressureNoClearWhenIdle(t *testing.T) {
	t.Parallel()

	bd, err := NewBackpressureDetector(0.9, 0.7)
	require.NoError(t, err)

	// Falling usage without a prior trigger produces no events.
	assert.Nil(t, bd.Update(0.6))
	assert.Nil(t, bd.Update(0.1))
	assert.Zero(t, bd.TriggerCount())
}
