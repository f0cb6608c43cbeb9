// Package params holds the static parameter registry and the tiered
// resolver that turns caller-supplied raw values into validated,
// type-coerced parameter sets.
package params

// Kind is the declared type of a parameter value.
type Kind string

const (
	KindInt   Kind = "integer"
	KindFloat Kind = "float"
	KindBool  Kind = "boolean"
)

// Definition describes one recognized parameter: its kind, default and
// optional bounds. Definitions are immutable after process start.
type Definition struct {
	Name        string
	Kind        Kind
	Default     any
	Min         *float64
	Max         *float64
	Description string
}

func f64(v float64) *float64 { return &v }

// IntDef builds an integer definition with inclusive bounds.
func IntDef(name string, def int, min, max float64, desc string) Definition {
	return Definition{Name: name, Kind: KindInt, Default: def, Min: f64(min), Max: f64(max), Description: desc}
}

// FloatDef builds a float definition with inclusive bounds.
func FloatDef(name string, def, min, max float64, desc string) Definition {
	return Definition{Name: name, Kind: KindFloat, Default: def, Min: f64(min), Max: f64(max), Description: desc}
}

// BoolDef builds a boolean definition (no bounds).
func BoolDef(name string, def bool, desc string) Definition {
	return Definition{Name: name, Kind: KindBool, Default: def, Description: desc}
}

// globalLoading applies to how any model is instantiated.
var globalLoading = map[string]Definition{
	"n_gpu_layers": IntDef("n_gpu_layers", -1, -1, 1000, "Number of layers offloaded to the GPU (-1 = all)"),
	"n_ctx":        IntDef("n_ctx", 2048, 128, 131072, "Context window size in tokens"),
	"n_threads":    IntDef("n_threads", 8, 1, 256, "CPU threads used for inference"),
	"use_mlock":    BoolDef("use_mlock", true, "Lock model memory to prevent swapping"),
	"use_mmap":     BoolDef("use_mmap", true, "Memory-map the model file"),
	"f16_kv":       BoolDef("f16_kv", true, "Use half-precision for the KV cache"),
}

// globalInference applies to any single generation call.
var globalInference = map[string]Definition{
	"max_tokens":     IntDef("max_tokens", 300, 1, 8192, "Maximum number of new tokens to generate"),
	"temperature":    FloatDef("temperature", 0.7, 0, 2, "Sampling temperature (higher = more random)"),
	"top_p":          FloatDef("top_p", 0.95, 0, 1, "Nucleus sampling probability"),
	"top_k":          IntDef("top_k", 40, 0, 500, "Limit sampling candidates to the top K tokens"),
	"repeat_penalty": FloatDef("repeat_penalty", 1.1, 0, 4, "Penalty applied to repeated tokens"),
	"min_p":          FloatDef("min_p", 0.05, 0, 1, "Minimum token probability cutoff"),
}

// GlobalLoading returns a copy of the global loading-parameter tier.
func GlobalLoading() map[string]Definition {
	out := make(map[string]Definition, len(globalLoading))
	for k, v := range globalLoading {
		out[k] = v
	}
	return out
}

// GlobalInference returns a copy of the global inference-parameter tier.
func GlobalInference() map[string]Definition {
	out := make(map[string]Definition, len(globalInference))
	for k, v := range globalInference {
		out[k] = v
	}
	return out
}
