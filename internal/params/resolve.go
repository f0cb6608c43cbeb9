package params

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Set is a resolved parameter mapping: validated, type-coerced and fully
// defaulted. Keys that no registry tier recognizes are retained but flagged
// as unknown; they carry no type guarantees.
type Set struct {
	values  map[string]any
	unknown map[string]struct{}
}

func newSet() Set {
	return Set{values: make(map[string]any), unknown: make(map[string]struct{})}
}

// Get returns the value for name, if present.
func (s Set) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// GetInt returns the int value for name or fallback.
func (s Set) GetInt(name string, fallback int) int {
	if v, ok := s.values[name].(int); ok {
		return v
	}
	return fallback
}

// GetFloat returns the float value for name or fallback.
func (s Set) GetFloat(name string, fallback float64) float64 {
	if v, ok := s.values[name].(float64); ok {
		return v
	}
	return fallback
}

// GetBool returns the bool value for name or fallback.
func (s Set) GetBool(name string, fallback bool) bool {
	if v, ok := s.values[name].(bool); ok {
		return v
	}
	return fallback
}

// Len reports the number of resolved keys.
func (s Set) Len() int { return len(s.values) }

// Values returns a copy of the resolved mapping.
func (s Set) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// IsUnknown reports whether name passed through without a registry definition.
func (s Set) IsUnknown(name string) bool {
	_, ok := s.unknown[name]
	return ok
}

// Unknown returns the sorted names that passed through unvalidated.
func (s Set) Unknown() []string {
	out := make([]string, 0, len(s.unknown))
	for k := range s.unknown {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Equal reports value equality over the resolved mapping. Two sets differing
// in any key or coerced value are unequal; unknown flags do not participate.
func (s Set) Equal(o Set) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := o.values[k]
		// DeepEqual: unknown passthrough values may hold non-comparable
		// JSON shapes (arrays, objects).
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// truthy string forms accepted for boolean parameters, case-insensitive.
var truthyStrings = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "on": {}}

func coerceBool(name string, v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		_, ok := truthyStrings[strings.ToLower(strings.TrimSpace(t))]
		return ok, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	default:
		return false, ErrType(name, v, KindBool)
	}
}

func coerceInt(name string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		// JSON numbers always arrive as float64; truncate like the
		// reference int() conversion did.
		return int(t), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, ErrType(name, v, KindInt)
		}
		return int(n), nil
	default:
		return 0, ErrType(name, v, KindInt)
	}
}

func coerceFloat(name string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, ErrType(name, v, KindFloat)
		}
		return f, nil
	default:
		return 0, ErrType(name, v, KindFloat)
	}
}

// Validate coerces value to the definition's kind and enforces its bounds.
// The returned value is int, float64 or bool depending on the kind.
func Validate(def Definition, value any) (any, error) {
	var out any
	var num float64
	switch def.Kind {
	case KindBool:
		b, err := coerceBool(def.Name, value)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindInt:
		n, err := coerceInt(def.Name, value)
		if err != nil {
			return nil, err
		}
		out, num = n, float64(n)
	case KindFloat:
		f, err := coerceFloat(def.Name, value)
		if err != nil {
			return nil, err
		}
		out, num = f, f
	default:
		return nil, ErrType(def.Name, value, def.Kind)
	}
	if def.Min != nil && num < *def.Min {
		return nil, ErrBelowMin(def.Name, out, *def.Min)
	}
	if def.Max != nil && num > *def.Max {
		return nil, ErrAboveMax(def.Name, out, *def.Max)
	}
	return out, nil
}

// Resolver merges registry tiers with caller-supplied raw values.
type Resolver struct {
	loading   map[string]Definition
	inference map[string]Definition
	log       zerolog.Logger
}

// NewResolver builds a resolver over the global tiers.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{loading: globalLoading, inference: globalInference, log: log}
}

// ResolveLoading produces the loading-time parameter set for one model:
// global defaults, overlaid with the model's override defaults, overlaid
// with the caller's raw values. Every value is validated against the
// model-specific definition when one exists, else the global one; unknown
// names pass through with a warning. The first validation failure rejects
// the whole set.
func (r *Resolver) ResolveLoading(modelDefs map[string]Definition, raw map[string]any) (Set, error) {
	merged := make(map[string]any, len(r.loading)+len(modelDefs)+len(raw))
	for name, def := range r.loading {
		merged[name] = def.Default
	}
	for name, def := range modelDefs {
		merged[name] = def.Default
	}
	for name, v := range raw {
		merged[name] = v
	}

	s := newSet()
	for name, v := range merged {
		def, ok := modelDefs[name]
		if !ok {
			def, ok = r.loading[name]
		}
		if !ok {
			r.log.Warn().Str("param", name).Msg("unknown loading parameter")
			s.values[name] = v
			s.unknown[name] = struct{}{}
			continue
		}
		cv, err := Validate(def, v)
		if err != nil {
			return Set{}, err
		}
		s.values[name] = cv
	}
	return s, nil
}

// ResolveInference produces the inference-time parameter set for one call:
// global defaults, overlaid with the model's configured defaults, overlaid
// with the caller's raw overrides. Invalid values are skipped with a warning
// so one bad override does not reject the whole request; unknown names pass
// through flagged.
func (r *Resolver) ResolveInference(modelDefaults map[string]any, raw map[string]any) Set {
	s := newSet()
	for name, def := range r.inference {
		s.values[name] = def.Default
	}
	r.overlayInference(s, modelDefaults)
	r.overlayInference(s, raw)
	return s
}

func (r *Resolver) overlayInference(s Set, src map[string]any) {
	for name, v := range src {
		def, ok := r.inference[name]
		if !ok {
			r.log.Warn().Str("param", name).Msg("unknown inference parameter")
			s.values[name] = v
			s.unknown[name] = struct{}{}
			continue
		}
		cv, err := Validate(def, v)
		if err != nil {
			r.log.Warn().Str("param", name).Err(err).Msg("skipping invalid inference parameter")
			continue
		}
		s.values[name] = cv
	}
}
