//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaAdapter constructs in-process go-llama.cpp engines.
type llamaAdapter struct{}

// NewLlamaAdapter returns the in-process llama.cpp adapter.
func NewLlamaAdapter() EngineAdapter { return &llamaAdapter{} }

// llamaEngine owns one loaded model. mu is held for the whole of every
// native call, so Free never races a running Predict; closed makes the token
// callback bail out quickly once Close is requested.
type llamaEngine struct {
	mu      sync.Mutex
	model   *llama.LLama
	closed  atomic.Bool
	ctxSize int
	threads int
}

func (a *llamaAdapter) Load(modelPath string, opts LoadOptions) (Engine, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(opts.CtxSize),
		llama.SetGPULayers(opts.GPULayers),
		llama.SetMMap(opts.UseMMap),
	}
	if opts.UseMLock {
		mo = append(mo, llama.EnableMLock)
	}
	if opts.F16KV {
		mo = append(mo, llama.EnableF16Memory)
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaEngine{model: m, ctxSize: opts.CtxSize, threads: opts.Threads}, nil
}

func (e *llamaEngine) Complete(ctx context.Context, prompt string, opts GenOptions) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Cancellation rides the token callback: returning false stops the
	// prediction loop.
	e.model.SetTokenCallback(func(string) bool { return ctx.Err() == nil && !e.closed.Load() })
	text, err := e.model.Predict(prompt, e.predictOptions(opts)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (e *llamaEngine) Stream(ctx context.Context, prompt string, opts GenOptions, onChunk func(string) error) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return "", errors.New("llama model not initialized")
	}
	e.model.SetTokenCallback(func(tok string) bool {
		if ctx.Err() != nil || e.closed.Load() {
			return false
		}
		return onChunk(tok) == nil
	})
	text, err := e.model.Predict(prompt, e.predictOptions(opts)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (e *llamaEngine) CountTokens(text string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return 0, errors.New("llama model not initialized")
	}
	n, _, err := e.model.TokenizeString(text, llama.SetTokens(0))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (e *llamaEngine) ContextSize() int { return e.ctxSize }

// Close signals any in-flight prediction to stop, then waits for it before
// freeing the native model.
func (e *llamaEngine) Close() error {
	e.closed.Store(true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

func (e *llamaEngine) predictOptions(opts GenOptions) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, opts.MaxTokens)),
		llama.SetThreads(maxInt(1, e.threads)),
		llama.SetTemperature(float32(opts.Temperature)),
		llama.SetTopP(float32(opts.TopP)),
		llama.SetTopK(opts.TopK),
		llama.SetPenalty(float32(opts.RepeatPenalty)),
	}
	// The binding has no min_p knob; opts.MinP is not mapped.
	if len(opts.Stop) > 0 {
		po = append(po, llama.SetStopWords(opts.Stop...))
	}
	return po
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
