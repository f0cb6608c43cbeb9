// Package registry loads the static model configuration: which models exist,
// where their weights live, their prompt templates and parameter overrides.
// Descriptors are read once at startup and read-only thereafter.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmd/internal/params"
)

// PromptTemplate holds the six role markers used for templated composition.
type PromptTemplate struct {
	SystemPrefix    string `json:"pre_prompt_prefix" yaml:"pre_prompt_prefix" toml:"pre_prompt_prefix"`
	SystemSuffix    string `json:"pre_prompt_suffix" yaml:"pre_prompt_suffix" toml:"pre_prompt_suffix"`
	UserPrefix      string `json:"input_prefix" yaml:"input_prefix" toml:"input_prefix"`
	UserSuffix      string `json:"input_suffix" yaml:"input_suffix" toml:"input_suffix"`
	AssistantPrefix string `json:"assistant_prefix" yaml:"assistant_prefix" toml:"assistant_prefix"`
	AssistantSuffix string `json:"assistant_suffix" yaml:"assistant_suffix" toml:"assistant_suffix"`
}

// Model describes one loadable model.
type Model struct {
	// Stable identity used by the API.
	ID string
	// Human-friendly name.
	Name string
	// Absolute path to the weights file.
	Path string
	// Maximum context window in tokens.
	ContextWindowMax int
	// Role markers for templated prompt composition.
	Template PromptTemplate
	// Loading-parameter definitions that override or extend the global tier.
	LoadingOverrides map[string]params.Definition
	// Default values overriding global inference defaults.
	InferenceDefaults map[string]any
}

// file-format shapes; converted to Model after decode.

type paramSpecFile struct {
	Type        string   `json:"type" yaml:"type" toml:"type"`
	Default     any      `json:"default" yaml:"default" toml:"default"`
	Min         *float64 `json:"min" yaml:"min" toml:"min"`
	Max         *float64 `json:"max" yaml:"max" toml:"max"`
	Description string   `json:"description" yaml:"description" toml:"description"`
}

type modelFile struct {
	ID                string                   `json:"id" yaml:"id" toml:"id"`
	Name              string                   `json:"name" yaml:"name" toml:"name"`
	Path              string                   `json:"path" yaml:"path" toml:"path"`
	ContextWindow     int                      `json:"context_window" yaml:"context_window" toml:"context_window"`
	Template          PromptTemplate           `json:"template" yaml:"template" toml:"template"`
	LoadingParams     map[string]paramSpecFile `json:"loading_params" yaml:"loading_params" toml:"loading_params"`
	InferenceDefaults map[string]any           `json:"inference_defaults" yaml:"inference_defaults" toml:"inference_defaults"`
}

type registryFile struct {
	Models []modelFile `json:"models" yaml:"models" toml:"models"`
}

// Load reads a model registry file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) ([]Model, error) {
	if path == "" {
		return nil, fmt.Errorf("empty registry path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf registryFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &rf); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &rf); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &rf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported registry extension: %s", ext)
	}
	if len(rf.Models) == 0 {
		return nil, fmt.Errorf("registry %s defines no models", path)
	}
	models := make([]Model, 0, len(rf.Models))
	seen := make(map[string]struct{}, len(rf.Models))
	for _, mf := range rf.Models {
		m, err := mf.toModel()
		if err != nil {
			return nil, fmt.Errorf("registry %s: %w", path, err)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("registry %s: duplicate model id %q", path, m.ID)
		}
		seen[m.ID] = struct{}{}
		models = append(models, m)
	}
	return models, nil
}

func (mf modelFile) toModel() (Model, error) {
	if strings.TrimSpace(mf.ID) == "" {
		return Model{}, fmt.Errorf("model with empty id")
	}
	if strings.TrimSpace(mf.Path) == "" {
		return Model{}, fmt.Errorf("model %q: empty path", mf.ID)
	}
	ctx := mf.ContextWindow
	if ctx <= 0 {
		ctx = 2048
	}
	m := Model{
		ID:                mf.ID,
		Name:              mf.Name,
		Path:              mf.Path,
		ContextWindowMax:  ctx,
		Template:          mf.Template,
		InferenceDefaults: mf.InferenceDefaults,
	}
	if len(mf.LoadingParams) > 0 {
		m.LoadingOverrides = make(map[string]params.Definition, len(mf.LoadingParams))
		for name, spec := range mf.LoadingParams {
			def, err := spec.toDefinition(name)
			if err != nil {
				return Model{}, fmt.Errorf("model %q: %w", mf.ID, err)
			}
			m.LoadingOverrides[name] = def
		}
	}
	return m, nil
}

func (sf paramSpecFile) toDefinition(name string) (params.Definition, error) {
	var kind params.Kind
	switch strings.ToLower(sf.Type) {
	case "integer", "int":
		kind = params.KindInt
	case "float", "number":
		kind = params.KindFloat
	case "boolean", "bool":
		kind = params.KindBool
	default:
		return params.Definition{}, fmt.Errorf("parameter %q: unknown type %q", name, sf.Type)
	}
	def := params.Definition{
		Name:        name,
		Kind:        kind,
		Min:         sf.Min,
		Max:         sf.Max,
		Description: sf.Description,
	}
	// The declared default must itself satisfy the definition.
	cv, err := params.Validate(def, sf.Default)
	if err != nil {
		return params.Definition{}, fmt.Errorf("parameter %q: invalid default: %w", name, err)
	}
	def.Default = cv
	return def, nil
}

// Find returns the model with the given id.
func Find(models []Model, id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
