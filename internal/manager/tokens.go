package manager

import (
	"math"

	"llmd/internal/registry"
	"llmd/pkg/types"
)

// estimateTokens is the documented fallback heuristic: typical byte-pair
// encodings land around 3-4 characters per token.
func estimateTokens(text string) int { return len(text) / 3 }

// CountTokens counts tokens in text. A loaded engine's tokenizer is
// authoritative; on tokenizer failure, or with no model loaded, the
// character estimate is used.
func (m *Manager) CountTokens(text string) int {
	m.mu.RLock()
	engine := m.slot.engine
	m.mu.RUnlock()
	if engine == nil {
		return estimateTokens(text)
	}
	n, err := engine.CountTokens(text)
	if err != nil {
		m.log.Warn().Err(err).Msg("tokenizer failed, using character estimate")
		return estimateTokens(text)
	}
	return n
}

// ContextUsage reports token accounting for text. The context window comes
// from the loaded engine when one is present, else from the requested
// model's static descriptor, else the global n_ctx default. remainingTokens
// may go negative; callers must treat that as over-budget, not clamp it.
func (m *Manager) ContextUsage(text, modelID string) types.ContextUsage {
	tokenCount := m.CountTokens(text)

	m.mu.RLock()
	engine := m.slot.engine
	m.mu.RUnlock()
	maxContext := 0
	if engine != nil {
		maxContext = engine.ContextSize()
	} else if mdl, ok := registry.Find(m.registry, modelID); ok {
		maxContext = mdl.ContextWindowMax
	}
	if maxContext <= 0 {
		maxContext = 2048
	}

	pct := 0.0
	if maxContext > 0 {
		pct = math.Round(float64(tokenCount)/float64(maxContext)*100*10) / 10
	}
	return types.ContextUsage{
		TokenCount:      tokenCount,
		MaxContext:      maxContext,
		UsagePercentage: pct,
		RemainingTokens: maxContext - tokenCount,
	}
}
