//go:build !llama

package manager

// This file provides a no-CGO stub for the llama adapter. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real adapter lives in llama.go (tagged 'llama').

// llamaAdapter refuses to construct engines without the 'llama' build tag.
// This avoids any mocked behavior in production binaries built without CGO
// support.
type llamaAdapter struct{}

// NewLlamaAdapter returns the stub adapter.
func NewLlamaAdapter() EngineAdapter { return &llamaAdapter{} }

func (a *llamaAdapter) Load(modelPath string, opts LoadOptions) (Engine, error) {
	// Fail fast: llama runtime not available in this build.
	return nil, ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}
