package manager

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateEmptyPrompt(t *testing.T) {
	a := &fakeAdapter{}
	m, _ := newTestManager(t, a)
	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "   "})
	if !IsEmptyPrompt(err) {
		t.Fatalf("expected empty prompt error, got %v", err)
	}
	if a.loads != 0 {
		t.Fatalf("no engine call expected for empty prompt")
	}
}

func TestGenerateEnsuresModelAndTrims(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{completeText: "\n### Response:\nHello there.\n"}}
	m, _ := newTestManager(t, a)
	out, err := m.Generate(context.Background(), GenerateRequest{Model: "alpha", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Hello there." {
		t.Fatalf("out=%q", out)
	}
	if a.loads != 1 {
		t.Fatalf("model should be loaded on demand, loads=%d", a.loads)
	}
	eng := currentEngine(t, m)
	want := "\n### Instruction:\nhi\n### Response:\n"
	if eng.lastPrompt != want {
		t.Fatalf("prompt=%q want %q", eng.lastPrompt, want)
	}
}

func TestGenerateTemplatedComposition(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{completeText: "ok"}}
	m, _ := newTestManager(t, a)
	_, err := m.Generate(context.Background(), GenerateRequest{Model: "beta", Prompt: "hi", SystemPrompt: "be brief"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	eng := currentEngine(t, m)
	want := "<|im_start|>system\nbe brief<|im_end|>\n<|im_start|>user\nhi<|im_end|>\n<|im_start|>assistant\n"
	if eng.lastPrompt != want {
		t.Fatalf("prompt=%q", eng.lastPrompt)
	}
	// Templated mode stops at the assistant suffix.
	if len(eng.lastOptions.Stop) != 1 || eng.lastOptions.Stop[0] != "<|im_end|>" {
		t.Fatalf("stop=%v", eng.lastOptions.Stop)
	}
}

func TestGenerateRawComposition(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{completeText: "  plain  "}}
	m, _ := newTestManager(t, a)
	out, err := m.Generate(context.Background(), GenerateRequest{Model: "beta", Prompt: "hi", SystemPrompt: "sys", Raw: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	eng := currentEngine(t, m)
	if eng.lastPrompt != "sys\n\nhi" {
		t.Fatalf("prompt=%q", eng.lastPrompt)
	}
	if len(eng.lastOptions.Stop) != 0 {
		t.Fatalf("raw mode must not set template stop words, got %v", eng.lastOptions.Stop)
	}
	if out != "plain" {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateInferenceOverrides(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{completeText: "ok"}}
	m, _ := newTestManager(t, a)
	_, err := m.Generate(context.Background(), GenerateRequest{
		Model:  "alpha",
		Prompt: "hi",
		// temperature 99 is out of range: skipped, model default survives.
		Overrides: map[string]any{"max_tokens": 150, "temperature": 99.0},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	eng := currentEngine(t, m)
	if eng.lastOptions.MaxTokens != 150 {
		t.Fatalf("max_tokens=%d want 150", eng.lastOptions.MaxTokens)
	}
	if eng.lastOptions.Temperature != 0.8 {
		t.Fatalf("temperature=%v want model default 0.8", eng.lastOptions.Temperature)
	}
}

func TestGenerateReusesSlotByIdentity(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{completeText: "ok"}}
	m, _ := newTestManager(t, a)
	// Loaded with non-default parameters; queries must not trigger a swap.
	if _, err := m.Load(context.Background(), "alpha", map[string]any{"n_ctx": 2048}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := m.Generate(context.Background(), GenerateRequest{Model: "alpha", Prompt: "hi"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.loads != 1 {
		t.Fatalf("loads=%d want 1", a.loads)
	}
}

func TestGenerateEngineFailure(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{genErr: errors.New("kv cache exhausted")}}
	m, _ := newTestManager(t, a)
	_, err := m.Generate(context.Background(), GenerateRequest{Model: "alpha", Prompt: "hi"})
	if !IsGeneration(err) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "kv cache exhausted") {
		t.Fatalf("native reason missing: %v", err)
	}
}

func TestGenerateUnknownModel(t *testing.T) {
	m, _ := newTestManager(t, &fakeAdapter{})
	_, err := m.Generate(context.Background(), GenerateRequest{Model: "gamma", Prompt: "hi"})
	if !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}
