package params

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestResolver() *Resolver { return NewResolver(zerolog.Nop()) }

func TestCoerceBoolTruthyStrings(t *testing.T) {
	def := BoolDef("use_mlock", false, "")
	cases := []struct {
		in   any
		want bool
	}{
		{"true", true}, {"TRUE", true}, {"1", true}, {"yes", true}, {"Yes", true}, {"on", true}, {"ON", true},
		{"false", false}, {"0", false}, {"no", false}, {"off", false}, {"banana", false}, {"", false},
		{true, true}, {false, false},
		{1, true}, {0, false}, {float64(2), true},
	}
	for _, c := range cases {
		got, err := Validate(def, c.in)
		if err != nil {
			t.Fatalf("Validate(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Validate(%v)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestValidateIntCoercion(t *testing.T) {
	def := IntDef("n_ctx", 2048, 128, 131072, "")
	cases := []struct {
		in   any
		want int
	}{
		{4096, 4096},
		{float64(4096), 4096},
		{"4096", 4096},
		{int64(512), 512},
	}
	for _, c := range cases {
		got, err := Validate(def, c.in)
		if err != nil {
			t.Fatalf("Validate(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Validate(%v)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestValidateTypeError(t *testing.T) {
	def := IntDef("n_ctx", 2048, 128, 131072, "")
	if _, err := Validate(def, "abc"); !IsTypeError(err) {
		t.Fatalf("expected type error, got %v", err)
	}
	fdef := FloatDef("temperature", 0.7, 0, 2, "")
	if _, err := Validate(fdef, "hot"); !IsTypeError(err) {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestValidateRangeError(t *testing.T) {
	def := IntDef("n_ctx", 2048, 128, 131072, "")
	if _, err := Validate(def, -500); !IsRangeError(err) {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := Validate(def, 1<<20); !IsRangeError(err) {
		t.Fatalf("expected range error, got %v", err)
	}
	// In-range values round-trip unchanged after coercion.
	got, err := Validate(def, 8192)
	if err != nil || got != 8192 {
		t.Fatalf("Validate(8192)=%v,%v", got, err)
	}
}

func TestResolveLoadingDefaults(t *testing.T) {
	r := newTestResolver()
	s, err := r.ResolveLoading(nil, nil)
	if err != nil {
		t.Fatalf("ResolveLoading: %v", err)
	}
	if got := s.GetInt("n_ctx", 0); got != 2048 {
		t.Fatalf("n_ctx=%d want 2048", got)
	}
	if got := s.GetInt("n_gpu_layers", 0); got != -1 {
		t.Fatalf("n_gpu_layers=%d want -1", got)
	}
	if !s.GetBool("use_mmap", false) {
		t.Fatalf("use_mmap should default true")
	}
}

func TestResolveLoadingModelTierOverridesGlobal(t *testing.T) {
	r := newTestResolver()
	modelDefs := map[string]Definition{
		"n_ctx": IntDef("n_ctx", 4096, 512, 8192, "model-scoped window"),
	}
	s, err := r.ResolveLoading(modelDefs, nil)
	if err != nil {
		t.Fatalf("ResolveLoading: %v", err)
	}
	if got := s.GetInt("n_ctx", 0); got != 4096 {
		t.Fatalf("n_ctx=%d want model default 4096", got)
	}
	// Caller value validated against the model tier's bounds, not global.
	if _, err := r.ResolveLoading(modelDefs, map[string]any{"n_ctx": 16384}); !IsRangeError(err) {
		t.Fatalf("expected range error from model tier, got %v", err)
	}
}

func TestResolveLoadingRejectsWholeSetOnFirstError(t *testing.T) {
	r := newTestResolver()
	raw := map[string]any{"n_ctx": -500, "n_threads": 4}
	if _, err := r.ResolveLoading(nil, raw); !IsRangeError(err) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestResolveLoadingUnknownPassthrough(t *testing.T) {
	r := newTestResolver()
	s, err := r.ResolveLoading(nil, map[string]any{"rope_freq_base": 10000})
	if err != nil {
		t.Fatalf("ResolveLoading: %v", err)
	}
	v, ok := s.Get("rope_freq_base")
	if !ok || !s.IsUnknown("rope_freq_base") {
		t.Fatalf("unknown key should pass through flagged, got %v ok=%v", v, ok)
	}
	if got := s.Unknown(); len(got) != 1 || got[0] != "rope_freq_base" {
		t.Fatalf("Unknown()=%v", got)
	}
}

func TestResolveInferenceSkipsInvalidKey(t *testing.T) {
	r := newTestResolver()
	raw := map[string]any{"temperature": 99.0, "max_tokens": 150}
	s := r.ResolveInference(nil, raw)
	// Invalid temperature skipped; default survives, valid key applied.
	if got := s.GetFloat("temperature", -1); got != 0.7 {
		t.Fatalf("temperature=%v want default 0.7", got)
	}
	if got := s.GetInt("max_tokens", 0); got != 150 {
		t.Fatalf("max_tokens=%d want 150", got)
	}
}

func TestResolveInferenceModelDefaults(t *testing.T) {
	r := newTestResolver()
	s := r.ResolveInference(map[string]any{"temperature": 0.8, "top_k": 40}, nil)
	if got := s.GetFloat("temperature", 0); got != 0.8 {
		t.Fatalf("temperature=%v want 0.8", got)
	}
	// Caller overrides win over model defaults.
	s = r.ResolveInference(map[string]any{"temperature": 0.8}, map[string]any{"temperature": 0.2})
	if got := s.GetFloat("temperature", 0); got != 0.2 {
		t.Fatalf("temperature=%v want 0.2", got)
	}
}

func TestResolveInferenceUnknownPassthrough(t *testing.T) {
	r := newTestResolver()
	s := r.ResolveInference(nil, map[string]any{"mirostat": 2})
	if _, ok := s.Get("mirostat"); !ok || !s.IsUnknown("mirostat") {
		t.Fatalf("unknown inference key should pass through flagged")
	}
}

func TestSetEqual(t *testing.T) {
	r := newTestResolver()
	a, _ := r.ResolveLoading(nil, map[string]any{"n_ctx": 2048})
	b, _ := r.ResolveLoading(nil, nil)
	if !a.Equal(b) {
		t.Fatalf("sets with identical resolved values should be equal")
	}
	c, _ := r.ResolveLoading(nil, map[string]any{"n_ctx": 4096})
	if a.Equal(c) {
		t.Fatalf("sets differing in one value should not be equal")
	}
	// Coercion normalizes representation: "2048" equals 2048.
	d, _ := r.ResolveLoading(nil, map[string]any{"n_ctx": "2048"})
	if !a.Equal(d) {
		t.Fatalf("coerced values should compare equal")
	}
}

func TestGlobalTablesAreCopies(t *testing.T) {
	g := GlobalLoading()
	g["n_ctx"] = IntDef("n_ctx", 1, 1, 1, "")
	if got := GlobalLoading()["n_ctx"].Default; got != 2048 {
		t.Fatalf("mutating the returned map must not affect the registry, got %v", got)
	}
	if len(GlobalInference()) != 6 {
		t.Fatalf("inference tier size=%d", len(GlobalInference()))
	}
}
