package manager

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Generation calls are serialized: whether one engine handle tolerates
// concurrent calls is engine-specific, so the safe policy is a single
// in-flight call behind a bounded FIFO queue. A release in progress refuses
// admission outright, both on entry and after the in-flight slot is won, so
// no caller slips past the drain and runs against a closing engine. Returns
// a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context, modelID string) (func(), error) {
	if m.isDraining() {
		return func() {}, tooBusyError{modelID: modelID}
	}

	// Try to reserve a queue slot with timeout.
	select {
	case m.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-time.After(m.maxWait):
		return func() {}, tooBusyError{modelID: modelID}
	}

	// Wait to acquire the single in-flight slot.
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	select {
	case m.genCh <- struct{}{}:
		if m.isDraining() {
			<-m.genCh
			return func() {}, tooBusyError{modelID: modelID}
		}
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-time.After(m.maxWait):
		return func() {}, tooBusyError{modelID: modelID}
	}
}

func (m *Manager) isDraining() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.draining
}
