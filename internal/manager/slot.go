package manager

import (
	"context"
	"time"
)

// SlotStatus is a read-only projection of the model slot.
type SlotStatus struct {
	Loaded        bool
	Model         string
	LoadingParams map[string]any
}

// Load reconciles the requested (identity, loading parameters) pair against
// the current slot. Identical pair: the existing handle is reused without
// reconstruction. Different pair: any existing handle is released first,
// then a new engine is constructed. Construction failure leaves the slot
// empty and surfaces the native reason.
func (m *Manager) Load(ctx context.Context, id string, raw map[string]any) (SlotStatus, error) {
	mdl, err := m.findModel(id)
	if err != nil {
		return SlotStatus{}, err
	}
	resolved, err := m.resolver.ResolveLoading(mdl.LoadingOverrides, raw)
	if err != nil {
		return SlotStatus{}, err
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.RLock()
	same := m.slot.engine != nil && m.slot.id == mdl.ID && m.slot.loading.Equal(resolved)
	m.mu.RUnlock()
	if same {
		m.mu.Lock()
		m.reusesTotal++
		m.mu.Unlock()
		m.publisher.Publish(Event{Name: EventSlotReuse, ModelID: mdl.ID})
		m.log.Debug().Str("model", mdl.ID).Msg("slot reuse, identical pair")
		return m.Status(), nil
	}
	if err := ctx.Err(); err != nil {
		return SlotStatus{}, err
	}

	// Never two live handles: release before constructing.
	m.releaseLocked()

	m.publisher.Publish(Event{Name: EventLoadStart, ModelID: mdl.ID})
	m.log.Info().Str("model", mdl.ID).Interface("params", resolved.Values()).Msg("loading model")
	start := time.Now()
	engine, err := m.adapter.Load(mdl.Path, loadOptionsFromSet(resolved))
	if err != nil {
		m.publisher.Publish(Event{Name: EventLoadError, ModelID: mdl.ID, Fields: map[string]any{"error": err.Error()}})
		m.log.Error().Str("model", mdl.ID).Err(err).Msg("model load failed")
		if IsEngineUnavailable(err) {
			return SlotStatus{}, err
		}
		return SlotStatus{}, ErrModelLoad(mdl.ID, err)
	}

	m.mu.Lock()
	m.slot = slotState{id: mdl.ID, loading: resolved, engine: engine}
	m.loadsTotal++
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: EventLoadReady, ModelID: mdl.ID, Fields: map[string]any{"dur_ms": int(time.Since(start) / time.Millisecond)}})
	m.log.Info().Str("model", mdl.ID).Dur("dur", time.Since(start)).Msg("model loaded")
	return m.Status(), nil
}

// Release empties the slot, freeing the engine. Safe to call when already
// empty; the return value reports whether anything was loaded.
func (m *Manager) Release() bool {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	m.mu.RLock()
	loaded := m.slot.engine != nil
	m.mu.RUnlock()
	if !loaded {
		return false
	}
	m.releaseLocked()
	return true
}

// releaseLocked drains in-flight generation and closes the engine.
// Callers must hold loadMu. While draining, admission refuses new callers;
// anyone already past admission holds a genCh token, so the channel checks
// below account for them.
func (m *Manager) releaseLocked() {
	m.mu.Lock()
	engine := m.slot.engine
	id := m.slot.id
	if engine == nil {
		m.mu.Unlock()
		return
	}
	m.draining = true
	m.mu.Unlock()

	// Let queued and in-flight generation finish, bounded by drainTimeout.
	deadline := time.Now().Add(m.drainTimeout)
	for {
		if len(m.genCh) == 0 && len(m.queueCh) == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.log.Warn().Str("model", id).Msg("drain timeout, closing engine with work in flight")
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.mu.Lock()
	m.slot = slotState{}
	m.draining = false
	m.releasesTotal++
	m.mu.Unlock()
	if err := engine.Close(); err != nil {
		m.log.Warn().Str("model", id).Err(err).Msg("engine close failed")
	}
	m.publisher.Publish(Event{Name: EventSlotRelease, ModelID: id})
	m.log.Info().Str("model", id).Msg("model unloaded")
}

// Status reports the current slot occupancy.
func (m *Manager) Status() SlotStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.slot.engine == nil {
		return SlotStatus{}
	}
	return SlotStatus{
		Loaded:        true,
		Model:         m.slot.id,
		LoadingParams: m.slot.loading.Values(),
	}
}

// ensure guarantees the slot holds the requested model, loading it with
// default parameters when absent. Unlike Load, an occupied slot with the
// same identity is reused regardless of its loading parameters: interactive
// clients ensure before every query and must not trigger swaps.
func (m *Manager) ensure(ctx context.Context, id string) error {
	mdl, err := m.findModel(id)
	if err != nil {
		return err
	}
	m.mu.RLock()
	occupied := m.slot.engine != nil && m.slot.id == mdl.ID
	m.mu.RUnlock()
	if occupied {
		return nil
	}
	_, err = m.Load(ctx, mdl.ID, nil)
	return err
}
