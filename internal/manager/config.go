package manager

import (
	"time"

	"github.com/rs/zerolog"

	"llmd/internal/registry"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
	defaultFramePacing   = 10 * time.Millisecond
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Registry     []registry.Model
	DefaultModel string
	// Adapter constructs engine handles; nil selects the built-in llama
	// adapter (or its no-CGO stub).
	Adapter EngineAdapter
	// Generation admission: queue depth and maximum wait before 429.
	MaxQueueDepth int
	MaxWait       time.Duration
	// How long Release waits for in-flight generation before closing.
	DrainTimeout time.Duration
	// Delay between streamed frames; avoids single-character frames
	// saturating the transport. Throughput trade-off, not correctness.
	FramePacing time.Duration
	Publisher   EventPublisher
	Logger      zerolog.Logger
}

// New constructs a Manager from Config, applying package defaults.
func New(cfg Config) *Manager {
	m := &Manager{
		registry:     cfg.Registry,
		defaultModel: cfg.DefaultModel,
		adapter:      cfg.Adapter,
		publisher:    cfg.Publisher,
		log:          cfg.Logger,
		startTime:    time.Now(),
	}
	if m.adapter == nil {
		m.adapter = NewLlamaAdapter()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, depth)
	if m.maxWait = cfg.MaxWait; m.maxWait <= 0 {
		m.maxWait = defaultMaxWait
	}
	if m.drainTimeout = cfg.DrainTimeout; m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	if m.framePacing = cfg.FramePacing; m.framePacing < 0 {
		m.framePacing = 0
	} else if m.framePacing == 0 {
		m.framePacing = defaultFramePacing
	}
	m.resolver = newResolver(m.log)
	return m
}
