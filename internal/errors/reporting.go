// Package errors - optional reporter integration
package errors

import (
	"sync"
	"sync/atomic"
)

// Reporter receives enhanced errors for out-of-band handling, such as
// metrics or an event bus. Reporters must not block.
type Reporter interface {
	ReportError(ee *EnhancedError)
	IsEnabled() bool
}

var (
	reportersMu        sync.RWMutex
	reporters          []Reporter
	hasActiveReporting atomic.Bool
)

// AddReporter registers a reporter. Registration is expected at startup;
// there is no removal.
func AddReporter(r Reporter) {
	if r == nil {
		return
	}
	reportersMu.Lock()
	reporters = append(reporters, r)
	reportersMu.Unlock()
	updateActiveReporting()
}

// updateActiveReporting recomputes the fast-path flag consulted by Build.
func updateActiveReporting() {
	reportersMu.RLock()
	defer reportersMu.RUnlock()
	for _, r := range reporters {
		if r.IsEnabled() {
			hasActiveReporting.Store(true)
			return
		}
	}
	hasActiveReporting.Store(false)
}

// notifyReporters delivers the error to every enabled reporter once.
func notifyReporters(ee *EnhancedError) {
	if ee.IsReported() {
		return
	}
	reportersMu.RLock()
	defer reportersMu.RUnlock()
	for _, r := range reporters {
		if r.IsEnabled() {
			r.ReportError(ee)
		}
	}
	ee.MarkReported()
}
