package manager

import (
	"context"
	"strings"
	"time"

	"llmd/pkg/types"
)

// GenerateRequest carries one generation call.
type GenerateRequest struct {
	Model        string
	Prompt       string
	SystemPrompt string
	// Raw selects blank-line concatenation instead of templated role
	// wrapping.
	Raw bool
	// Per-request inference parameter overrides, validated individually.
	Overrides map[string]any
}

// prepare resolves the target model, composes the final prompt and maps the
// inference parameters. Shared by the single and streaming paths.
func (m *Manager) prepare(req GenerateRequest) (string, GenOptions, error) {
	mdl, err := m.findModel(req.Model)
	if err != nil {
		return "", GenOptions{}, err
	}
	set := m.resolver.ResolveInference(mdl.InferenceDefaults, req.Overrides)
	opts := genOptionsFromSet(set)

	var finalPrompt string
	if req.Raw {
		finalPrompt = composeRaw(req.Prompt, req.SystemPrompt)
	} else {
		finalPrompt = composeTemplated(mdl.Template, req.Prompt, req.SystemPrompt)
		// Halt at the template boundary instead of running to max_tokens.
		if mdl.Template.AssistantSuffix != "" {
			opts.Stop = []string{mdl.Template.AssistantSuffix}
		}
	}
	return finalPrompt, opts, nil
}

func (m *Manager) trimOutput(req GenerateRequest, text string) string {
	if req.Raw {
		return strings.TrimSpace(text)
	}
	mdl, err := m.findModel(req.Model)
	if err != nil {
		return strings.TrimSpace(text)
	}
	return trimAssistant(mdl.Template, text)
}

// acquireEngine ensures the requested model is loaded, admits the call, and
// only then reads the engine handle out of the slot. Reading after admission
// matters: a release that force-broke its drain, or a swap to another model,
// may have retired the handle while this call waited. A retired handle is
// never returned; the slot is re-validated and, on a swap, the acquisition
// retries against the reloaded slot.
func (m *Manager) acquireEngine(ctx context.Context, id string) (Engine, func(), error) {
	for attempt := 0; ; attempt++ {
		mdl, err := m.findModel(id)
		if err != nil {
			return nil, nil, err
		}
		if err := m.ensure(ctx, mdl.ID); err != nil {
			return nil, nil, err
		}
		release, err := m.beginGeneration(ctx, mdl.ID)
		if err != nil {
			return nil, nil, err
		}
		m.mu.RLock()
		engine := m.slot.engine
		cur := m.slot.id
		m.mu.RUnlock()
		if engine != nil && cur == mdl.ID {
			return engine, release, nil
		}
		release()
		if attempt == 2 {
			return nil, nil, tooBusyError{modelID: mdl.ID}
		}
	}
}

// Generate drives the engine to completion and returns the trimmed text.
// The requested model is ensured into the slot first; an empty prompt is a
// client error surfaced before any engine work.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyPrompt()
	}
	finalPrompt, opts, err := m.prepare(req)
	if err != nil {
		return "", err
	}
	engine, release, err := m.acquireEngine(ctx, req.Model)
	if err != nil {
		return "", err
	}
	defer release()

	m.publisher.Publish(Event{Name: EventGenStart, ModelID: req.Model})
	start := time.Now()
	text, err := engine.Complete(ctx, finalPrompt, opts)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", ErrGeneration(err)
	}
	out := m.trimOutput(req, text)
	m.publisher.Publish(Event{Name: EventGenDone, ModelID: req.Model, Fields: map[string]any{"chars": len(out)}})
	m.log.Info().Int("chars", len(out)).Dur("dur", time.Since(start)).Msg("generation complete")
	return out, nil
}

// GenerateStream surfaces generation incrementally through emit. A
// processing frame goes out before the model is ensured so clients do not
// time out during warm-up; every later frame carries the trimmed
// accumulated text, and exactly one complete or error frame terminates the
// sequence. The returned error is non-nil only for transport failures
// (emit error, client disconnect); engine failures become error frames.
// Empty prompts and unknown models are rejected before any frame.
func (m *Manager) GenerateStream(ctx context.Context, req GenerateRequest, emit func(types.GenerationFrame) error) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt()
	}
	finalPrompt, opts, err := m.prepare(req)
	if err != nil {
		return err
	}
	if err := emit(types.ProcessingFrame()); err != nil {
		return err
	}

	engine, release, err := m.acquireEngine(ctx, req.Model)
	if err != nil {
		return emit(types.ErrorFrame(err.Error()))
	}
	defer release()

	m.publisher.Publish(Event{Name: EventGenStart, ModelID: req.Model})
	var acc strings.Builder
	var last string
	var emitErr error
	_, genErr := engine.Stream(ctx, finalPrompt, opts, func(chunk string) error {
		acc.WriteString(chunk)
		last = m.trimOutput(req, acc.String())
		if emitErr = emit(types.GeneratingFrame(last)); emitErr != nil {
			return emitErr
		}
		// Inter-frame pacing; tunable, not a correctness requirement.
		if m.framePacing > 0 {
			select {
			case <-time.After(m.framePacing):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if emitErr != nil {
		return emitErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if genErr != nil {
		m.log.Error().Err(genErr).Msg("streaming generation failed")
		return emit(types.ErrorFrame(ErrGeneration(genErr).Error()))
	}
	m.publisher.Publish(Event{Name: EventGenDone, ModelID: req.Model, Fields: map[string]any{"chars": len(last)}})
	m.log.Info().Int("chars", len(last)).Msg("streaming generation complete")
	return emit(types.CompleteFrame(last))
}
