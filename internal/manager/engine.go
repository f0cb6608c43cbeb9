package manager

import (
	"context"

	"llmd/internal/params"
)

// EngineAdapter constructs engine handles. Concrete implementations
// (go-llama.cpp) satisfy this; tests substitute fakes.
type EngineAdapter interface {
	// Load instantiates a model from its weights file. Construction may
	// block for seconds.
	Load(modelPath string, opts LoadOptions) (Engine, error)
}

// Engine is one loaded model instance. The Manager is its sole owner; no
// other component may retain a handle across calls.
type Engine interface {
	// Complete drives generation to completion and returns the full text.
	Complete(ctx context.Context, prompt string, opts GenOptions) (string, error)
	// Stream invokes onChunk for each produced chunk and returns the full
	// text. A non-nil error from onChunk stops generation promptly, as
	// does context cancellation.
	Stream(ctx context.Context, prompt string, opts GenOptions, onChunk func(string) error) (string, error)
	// CountTokens tokenizes text and returns the token count.
	CountTokens(text string) (int, error)
	// ContextSize reports the context window the engine was loaded with.
	ContextSize() int
	// Close frees the underlying model resource.
	Close() error
}

// LoadOptions captures loading-time parameters passed to the adapter.
type LoadOptions struct {
	GPULayers int
	CtxSize   int
	Threads   int
	UseMLock  bool
	UseMMap   bool
	F16KV     bool
}

// GenOptions captures generation parameters for one call.
type GenOptions struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	MinP          float64
	Stop          []string
}

// loadOptionsFromSet maps a resolved loading set onto adapter options.
// Fallbacks mirror the global registry defaults.
func loadOptionsFromSet(s params.Set) LoadOptions {
	return LoadOptions{
		GPULayers: s.GetInt("n_gpu_layers", -1),
		CtxSize:   s.GetInt("n_ctx", 2048),
		Threads:   s.GetInt("n_threads", 8),
		UseMLock:  s.GetBool("use_mlock", true),
		UseMMap:   s.GetBool("use_mmap", true),
		F16KV:     s.GetBool("f16_kv", true),
	}
}

// genOptionsFromSet maps a resolved inference set onto generation options.
func genOptionsFromSet(s params.Set) GenOptions {
	return GenOptions{
		MaxTokens:     s.GetInt("max_tokens", 300),
		Temperature:   s.GetFloat("temperature", 0.7),
		TopP:          s.GetFloat("top_p", 0.95),
		TopK:          s.GetInt("top_k", 40),
		RepeatPenalty: s.GetFloat("repeat_penalty", 1.1),
		MinP:          s.GetFloat("min_p", 0.05),
	}
}
