package manager

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llmd/internal/params"
	"llmd/internal/registry"
)

// fakeEngine is a scripted Engine for tests.
type fakeEngine struct {
	id      int
	ctxSize int

	completeText string
	chunks       []string
	failAfter    int // fail mid-stream after this many chunks (0 = never)
	genErr       error

	tokens      int
	tokenizeErr error

	mu          sync.Mutex
	closed      int
	lastPrompt  string
	lastOptions GenOptions
}

func (e *fakeEngine) record(prompt string, opts GenOptions) {
	e.mu.Lock()
	e.lastPrompt = prompt
	e.lastOptions = opts
	e.mu.Unlock()
}

func (e *fakeEngine) Complete(ctx context.Context, prompt string, opts GenOptions) (string, error) {
	e.record(prompt, opts)
	if e.genErr != nil && e.failAfter == 0 {
		return "", e.genErr
	}
	return e.completeText, nil
}

func (e *fakeEngine) Stream(ctx context.Context, prompt string, opts GenOptions, onChunk func(string) error) (string, error) {
	e.record(prompt, opts)
	if e.genErr != nil && e.failAfter == 0 {
		return "", e.genErr
	}
	var b strings.Builder
	for i, ch := range e.chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if e.genErr != nil && i == e.failAfter {
			return "", e.genErr
		}
		if err := onChunk(ch); err != nil {
			return "", err
		}
		b.WriteString(ch)
	}
	return b.String(), nil
}

func (e *fakeEngine) CountTokens(text string) (int, error) {
	if e.tokenizeErr != nil {
		return 0, e.tokenizeErr
	}
	return e.tokens, nil
}

func (e *fakeEngine) ContextSize() int { return e.ctxSize }

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed++
	e.mu.Unlock()
	return nil
}

// fakeAdapter hands out fakeEngines and records construction calls.
type fakeAdapter struct {
	mu       sync.Mutex
	loads    int
	failWith error
	lastPath string
	lastOpts LoadOptions
	engines  []*fakeEngine
	// next configures the engine handed out by the following Load.
	next fakeEngine
}

func (a *fakeAdapter) Load(path string, opts LoadOptions) (Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loads++
	a.lastPath = path
	a.lastOpts = opts
	if a.failWith != nil {
		return nil, a.failWith
	}
	eng := &fakeEngine{
		id:           a.loads,
		ctxSize:      opts.CtxSize,
		completeText: a.next.completeText,
		chunks:       a.next.chunks,
		failAfter:    a.next.failAfter,
		genErr:       a.next.genErr,
		tokens:       a.next.tokens,
		tokenizeErr:  a.next.tokenizeErr,
	}
	a.engines = append(a.engines, eng)
	return eng, nil
}

func testRegistry() []registry.Model {
	return []registry.Model{
		{
			ID:               "alpha",
			Name:             "alpha-7b",
			Path:             "/models/alpha-7b.Q6_K.gguf",
			ContextWindowMax: 8192,
			Template: registry.PromptTemplate{
				UserPrefix:      "\n### Instruction:\n",
				AssistantPrefix: "\n### Response:\n",
			},
			LoadingOverrides: map[string]params.Definition{
				"n_ctx": params.IntDef("n_ctx", 4096, 512, 8192, "alpha context window"),
			},
			InferenceDefaults: map[string]any{"temperature": 0.8},
		},
		{
			ID:               "beta",
			Name:             "beta-7b",
			Path:             "/models/beta-7b.Q4_0.gguf",
			ContextWindowMax: 4096,
			Template: registry.PromptTemplate{
				SystemPrefix:    "<|im_start|>system\n",
				SystemSuffix:    "<|im_end|>\n",
				UserPrefix:      "<|im_start|>user\n",
				UserSuffix:      "<|im_end|>\n",
				AssistantPrefix: "<|im_start|>assistant\n",
				AssistantSuffix: "<|im_end|>",
			},
		},
	}
}

// newTestManager wires a Manager over the fake adapter with pacing disabled.
func newTestManager(t *testing.T, a *fakeAdapter) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m := New(Config{
		Registry:     testRegistry(),
		DefaultModel: "alpha",
		Adapter:      a,
		MaxWait:      200 * time.Millisecond,
		DrainTimeout: 100 * time.Millisecond,
		FramePacing:  -1,
		Publisher:    pub,
		Logger:       zerolog.Nop(),
	})
	return m, pub
}

func currentEngine(t *testing.T, m *Manager) *fakeEngine {
	t.Helper()
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.slot.engine == nil {
		return nil
	}
	return m.slot.engine.(*fakeEngine)
}
