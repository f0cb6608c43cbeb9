package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llmd/internal/params"
	"llmd/internal/registry"
	"llmd/pkg/types"
)

// slotState is the process-wide mutable resource: at most one non-empty
// engine handle exists at any time.
type slotState struct {
	id      string
	loading params.Set
	engine  Engine
}

// Manager owns the model slot and coordinates parameter resolution,
// generation admission and token accounting.
type Manager struct {
	// loadMu serializes slot transitions (load, swap, release) so two
	// concurrent loads cannot race to construct/destroy the engine.
	loadMu sync.Mutex
	// mu guards reads and writes of the slot fields themselves, keeping
	// status queries responsive while a load is in progress.
	mu   sync.RWMutex
	slot slotState
	// draining marks a release in progress; admission refuses new entries
	// until the engine is closed so no caller can be handed a dying handle.
	draining bool

	registry     []registry.Model
	defaultModel string
	resolver     *params.Resolver
	adapter      EngineAdapter
	publisher    EventPublisher
	log          zerolog.Logger

	// Generation admission: bounded FIFO queue, single in-flight call.
	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration

	drainTimeout time.Duration
	framePacing  time.Duration

	startTime     time.Time
	loadsTotal    uint64
	releasesTotal uint64
	reusesTotal   uint64
}

func newResolver(log zerolog.Logger) *params.Resolver { return params.NewResolver(log) }

// SetPublisher installs an event publisher. Intended for wiring at startup
// and for tests; not safe to call concurrently with slot operations.
func (m *Manager) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// Ready reports whether the process can serve requests. The slot being
// empty is still ready: models load on demand.
func (m *Manager) Ready() bool { return true }

// Models returns summaries of every configured model.
func (m *Manager) Models() []types.ModelSummary {
	out := make([]types.ModelSummary, 0, len(m.registry))
	for _, mdl := range m.registry {
		out = append(out, types.ModelSummary{ID: mdl.ID, Name: mdl.Name, ContextWindow: mdl.ContextWindowMax})
	}
	return out
}

// Uptime reports how long the manager has been running.
func (m *Manager) Uptime() time.Duration { return time.Since(m.startTime) }

// SlotStats are cumulative lifecycle counters for the model slot.
type SlotStats struct {
	Loads    uint64
	Releases uint64
	Reuses   uint64
}

// Stats reports how often the slot was loaded, released and reused since
// startup.
func (m *Manager) Stats() SlotStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return SlotStats{Loads: m.loadsTotal, Releases: m.releasesTotal, Reuses: m.reusesTotal}
}

// findModel looks a descriptor up by id, falling back to the default model
// when id is empty.
func (m *Manager) findModel(id string) (registry.Model, error) {
	if id == "" {
		id = m.defaultModel
		if id == "" {
			return registry.Model{}, ErrUnknownModel("(unspecified)")
		}
	}
	mdl, ok := registry.Find(m.registry, id)
	if !ok {
		return registry.Model{}, ErrUnknownModel(id)
	}
	return mdl, nil
}
