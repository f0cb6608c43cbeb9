package manager

import (
	"llmd/internal/params"
	"llmd/pkg/types"
)

func toSpec(def params.Definition) types.ParameterSpec {
	return types.ParameterSpec{
		Type:        string(def.Kind),
		Default:     def.Default,
		Min:         def.Min,
		Max:         def.Max,
		Description: def.Description,
	}
}

// LoadingParameterInfo lists the global loading-parameter definitions and
// every model's override definitions.
func (m *Manager) LoadingParameterInfo() types.LoadingParametersResponse {
	resp := types.LoadingParametersResponse{
		Global:         make(map[string]types.ParameterSpec),
		ModelOverrides: make(map[string]map[string]types.ParameterSpec),
	}
	for name, def := range params.GlobalLoading() {
		resp.Global[name] = toSpec(def)
	}
	for _, mdl := range m.registry {
		if len(mdl.LoadingOverrides) == 0 {
			continue
		}
		specs := make(map[string]types.ParameterSpec, len(mdl.LoadingOverrides))
		for name, def := range mdl.LoadingOverrides {
			specs[name] = toSpec(def)
		}
		resp.ModelOverrides[mdl.ID] = specs
	}
	return resp
}

// InferenceParameterInfo lists the inference parameters with the effective
// default ("current") for the given model. With an empty model id the
// global defaults are reported; an unknown id is an error.
func (m *Manager) InferenceParameterInfo(modelID string) (map[string]types.ParameterInfo, error) {
	var modelDefaults map[string]any
	if modelID != "" {
		mdl, err := m.findModel(modelID)
		if err != nil {
			return nil, err
		}
		modelDefaults = mdl.InferenceDefaults
	}
	set := m.resolver.ResolveInference(modelDefaults, nil)
	out := make(map[string]types.ParameterInfo)
	for name, def := range params.GlobalInference() {
		current := def.Default
		if v, ok := set.Get(name); ok {
			current = v
		}
		out[name] = types.ParameterInfo{
			Current:     current,
			Default:     def.Default,
			Min:         def.Min,
			Max:         def.Max,
			Type:        string(def.Kind),
			Description: def.Description,
		}
	}
	return out, nil
}
