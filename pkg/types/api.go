package types

// FrameStatus tags one line of a streaming /query response.
type FrameStatus string

const (
	FrameProcessing FrameStatus = "processing"
	FrameGenerating FrameStatus = "generating"
	FrameComplete   FrameStatus = "complete"
	FrameError      FrameStatus = "error"
)

// GenerationFrame is one NDJSON line of a streaming response. Frames for one
// request form a single ordered sequence: each partial extends the previous
// one by prefix, terminated by exactly one complete or error frame.
type GenerationFrame struct {
	// Frame status: processing, generating, complete or error.
	// example: generating
	Status FrameStatus `json:"status" example:"generating"`
	// Accumulated text so far (processing and generating frames).
	Partial *string `json:"partial,omitempty"`
	// Final trimmed text (complete frame only).
	Response *string `json:"response,omitempty"`
	// Failure description (error frame only).
	Error string `json:"error,omitempty"`
}

// ProcessingFrame is emitted immediately when a stream opens, before the
// model is ensured, so clients and proxies do not time out during warm-up.
func ProcessingFrame() GenerationFrame {
	empty := ""
	return GenerationFrame{Status: FrameProcessing, Partial: &empty}
}

// GeneratingFrame carries the trimmed accumulated text so far.
func GeneratingFrame(partial string) GenerationFrame {
	return GenerationFrame{Status: FrameGenerating, Partial: &partial}
}

// CompleteFrame terminates a stream with the final trimmed text.
func CompleteFrame(response string) GenerationFrame {
	return GenerationFrame{Status: FrameComplete, Response: &response}
}

// ErrorFrame terminates a stream with a failure description.
func ErrorFrame(msg string) GenerationFrame {
	return GenerationFrame{Status: FrameError, Error: msg}
}

// QueryResponse is the non-streaming /query payload.
type QueryResponse struct {
	// Final generated text.
	Response string `json:"response"`
}

// LoadResponse is returned by POST /model/load.
type LoadResponse struct {
	// Outcome: success.
	// example: success
	Status string `json:"status" example:"success"`
	// Human-readable outcome description.
	Message string `json:"message"`
	// Model identity that now occupies the slot.
	// example: MyMainLLM
	Model string `json:"model" example:"MyMainLLM"`
	// Fully resolved loading parameters the slot was populated with.
	LoadingParameters map[string]any `json:"loadingParameters"`
}

// UnloadResponse is returned by POST /model/unload.
type UnloadResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message"`
}

// ModelStatusResponse is returned by GET /model/status.
type ModelStatusResponse struct {
	// Whether the slot currently holds a loaded engine.
	Loaded bool `json:"loaded"`
	// Identity of the loaded model, empty when unloaded.
	CurrentModel string `json:"currentModel,omitempty"`
	// Resolved loading parameters of the active slot.
	LoadingParameters map[string]any `json:"loadingParameters,omitempty"`
}

// ParameterSpec describes one registered parameter definition.
type ParameterSpec struct {
	// Parameter kind: integer, float or boolean.
	// example: integer
	Type string `json:"type" example:"integer"`
	// Default applied when the caller supplies no value.
	Default any `json:"default"`
	// Lower bound, if the definition constrains one.
	Min *float64 `json:"min,omitempty"`
	// Upper bound, if the definition constrains one.
	Max *float64 `json:"max,omitempty"`
	// Human-readable description.
	Description string `json:"description,omitempty"`
}

// LoadingParametersResponse is returned by GET /model/loading-parameters.
type LoadingParametersResponse struct {
	// Definitions that apply to every model.
	Global map[string]ParameterSpec `json:"global"`
	// Per-model override definitions, keyed by model identity.
	ModelOverrides map[string]map[string]ParameterSpec `json:"modelOverrides"`
}

// ParameterInfo is one entry of GET /model/inference-parameters.
type ParameterInfo struct {
	// Effective default for the requested model.
	Current any `json:"current"`
	// Global default.
	Default     any      `json:"default"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
}

// ContextUsage reports token accounting for a text against a context window.
type ContextUsage struct {
	// Number of tokens in the text (tokenizer count or len/3 estimate).
	TokenCount int `json:"tokenCount"`
	// Context window the count is measured against.
	MaxContext int `json:"maxContext"`
	// tokenCount / maxContext * 100, rounded to one decimal.
	UsagePercentage float64 `json:"usagePercentage"`
	// maxContext - tokenCount. Negative means the text overflows the window.
	RemainingTokens int `json:"remainingTokens"`
}

// CountTokensResponse is returned by POST /count_tokens.
type CountTokensResponse struct {
	Text         string       `json:"text"`
	Model        string       `json:"model,omitempty"`
	ContextUsage ContextUsage `json:"contextUsage"`
}

// ModelSummary is one entry of GET /models.
type ModelSummary struct {
	// Stable identifier used by /model/load and /query.
	// example: MyMainLLM
	ID string `json:"id" example:"MyMainLLM"`
	// Human-friendly name.
	// example: kunoichi
	Name string `json:"name,omitempty" example:"kunoichi"`
	// Maximum context window in tokens.
	// example: 8192
	ContextWindow int `json:"contextWindow,omitempty" example:"8192"`
}

// ModelsResponse wraps the list returned by GET /models.
type ModelsResponse struct {
	Models []ModelSummary `json:"models"`
}

// PingResponse is returned by GET /server/ping.
type PingResponse struct {
	// Always "online".
	// example: online
	Status string `json:"status" example:"online"`
	// Server time in RFC 3339.
	Timestamp string `json:"timestamp"`
}

// ServerInfoResponse is returned by GET /server/info.
type ServerInfoResponse struct {
	Platform      string `json:"serverPlatform"`
	GoVersion     string `json:"goVersion"`
	CurrentModel  string `json:"currentModel,omitempty"`
	ModelLoaded   bool   `json:"modelLoaded"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	NumCPU        int    `json:"numCpu"`
	// Cumulative slot lifecycle counters since startup.
	ModelLoads    uint64 `json:"modelLoads"`
	ModelReleases uint64 `json:"modelReleases"`
	SlotReuses    uint64 `json:"slotReuses"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// For 404 route misses, the routes this server does expose.
	AvailableEndpoints []string `json:"availableEndpoints,omitempty"`
}
