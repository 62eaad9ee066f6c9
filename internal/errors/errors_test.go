package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBasics(t *testing.T) {
	t.Parallel()

	ee := Newf("ring capacity must be positive, got %d", -1).
		Component("audiocore").
		Category(CategoryConfiguration).
		Context("capacity", -1).
		Build()

	assert.Equal(t, "ring capacity must be positive, got -1", ee.Error())
	assert.Equal(t, "audiocore", ee.GetComponent())
	assert.Equal(t, string(CategoryConfiguration), ee.GetCategory())
	assert.Equal(t, -1, ee.GetContext()["capacity"])
	assert.WithinDuration(t, time.Now(), ee.GetTimestamp(), time.Second)
}

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	ee := Newf("something went sideways").Build()
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.NotEmpty(t, ee.GetComponent())
	assert.Nil(t, ee.GetContext())
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	ee := Newf("queue overflow").Category(CategoryBuffer).Build()
	assert.True(t, IsCategory(ee, CategoryBuffer))
	assert.False(t, IsCategory(ee, CategoryDevice))

	// Works through wrapping.
	wrapped := fmt.Errorf("process step: %w", ee)
	assert.True(t, IsCategory(wrapped, CategoryBuffer))

	assert.False(t, IsCategory(nil, CategoryBuffer))
	assert.False(t, IsCategory(NewStd("plain"), CategoryBuffer))
}

func TestUnwrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := NewStd("device busy")
	ee := New(cause).Category(CategoryDevice).Build()

	assert.True(t, Is(ee, cause))
	assert.Equal(t, cause, Unwrap(ee))
	assert.Equal(t, cause, ee.GetError())
}

func TestFormatContext(t *testing.T) {
	t.Parallel()

	ee := Newf("format mismatch").
		Category(CategoryFormat).
		FormatContext(48000, 2).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, uint32(48000), ctx["sample_rate"])
	assert.Equal(t, uint16(2), ctx["channels"])
}

func TestDeviceError(t *testing.T) {
	t.Parallel()

	ee := DeviceError(NewStd("open failed"), "USB Mic", "alsa")
	assert.True(t, IsCategory(ee, CategoryDevice))
	assert.Equal(t, "USB Mic", ee.GetContext()["device"])
	assert.Equal(t, "alsa", ee.GetContext()["backend"])
}

func TestPriorityValidation(t *testing.T) {
	t.Parallel()

	ee := Newf("x").Priority(PriorityCritical).Build()
	assert.Equal(t, PriorityCritical, ee.GetPriority())

	// Unknown priority strings fall back to medium.
	ee = Newf("x").Priority("bogus").Build()
	assert.Equal(t, PriorityMedium, ee.GetPriority())

	ee = Newf("x").Build()
	assert.Empty(t, ee.GetPriority())
}

// recordingReporter captures reported errors for assertions.
type recordingReporter struct {
	enabled bool
	seen    []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.seen = append(r.seen, ee) }
func (r *recordingReporter) IsEnabled() bool               { return r.enabled }

func TestReporterReceivesBuiltErrors(t *testing.T) {
	rep := &recordingReporter{enabled: true}
	AddReporter(rep)
	defer func() {
		// Disable so later tests take the fast path again.
		rep.enabled = false
		updateActiveReporting()
	}()

	ee := Newf("source is not active").
		Component("audiocore.sources").
		Category(CategoryState).
		Build()

	require.Len(t, rep.seen, 1)
	assert.Same(t, ee, rep.seen[0])
	assert.True(t, ee.IsReported())
}
