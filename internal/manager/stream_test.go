package manager

import (
	"context"
	"errors"
	"strings"
	"testing"

	"llmd/pkg/types"
)

func collectFrames(t *testing.T, m *Manager, req GenerateRequest) ([]types.GenerationFrame, error) {
	t.Helper()
	var frames []types.GenerationFrame
	err := m.GenerateStream(context.Background(), req, func(f types.GenerationFrame) error {
		frames = append(frames, f)
		return nil
	})
	return frames, err
}

func TestStreamFrameSequence(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{chunks: []string{"Hel", "lo ", "world"}}}
	m, _ := newTestManager(t, a)
	frames, err := collectFrames(t, m, GenerateRequest{Model: "alpha", Prompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("frames=%d want 5 (processing + 3 generating + complete)", len(frames))
	}
	if frames[0].Status != types.FrameProcessing || *frames[0].Partial != "" {
		t.Fatalf("first frame=%+v", frames[0])
	}
	last := frames[len(frames)-1]
	if last.Status != types.FrameComplete || *last.Response != "Hello world" {
		t.Fatalf("terminal frame=%+v", last)
	}
	// Each partial extends the previous one by prefix.
	prev := ""
	for _, f := range frames[1 : len(frames)-1] {
		if f.Status != types.FrameGenerating {
			t.Fatalf("mid frame status=%s", f.Status)
		}
		if !strings.HasPrefix(*f.Partial, prev) {
			t.Fatalf("partial %q does not extend %q", *f.Partial, prev)
		}
		prev = *f.Partial
	}
	if !strings.HasPrefix(*last.Response, prev) {
		t.Fatalf("response %q does not extend %q", *last.Response, prev)
	}
}

func TestStreamEmptyPromptRejectedBeforeFrames(t *testing.T) {
	a := &fakeAdapter{}
	m, _ := newTestManager(t, a)
	frames, err := collectFrames(t, m, GenerateRequest{Model: "alpha", Prompt: ""})
	if !IsEmptyPrompt(err) {
		t.Fatalf("expected empty prompt error, got %v", err)
	}
	if len(frames) != 0 || a.loads != 0 {
		t.Fatalf("frames=%d loads=%d; nothing should happen", len(frames), a.loads)
	}
}

func TestStreamUnknownModelRejectedBeforeFrames(t *testing.T) {
	m, _ := newTestManager(t, &fakeAdapter{})
	frames, err := collectFrames(t, m, GenerateRequest{Model: "gamma", Prompt: "hi"})
	if !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("frames=%d want 0", len(frames))
	}
}

func TestStreamLoadFailureBecomesErrorFrame(t *testing.T) {
	a := &fakeAdapter{failWith: errors.New("bad magic")}
	m, _ := newTestManager(t, a)
	frames, err := collectFrames(t, m, GenerateRequest{Model: "alpha", Prompt: "hi"})
	if err != nil {
		t.Fatalf("stream transport should not fail: %v", err)
	}
	// Warm-up keepalive first, then the failure.
	if len(frames) != 2 {
		t.Fatalf("frames=%d want 2", len(frames))
	}
	if frames[0].Status != types.FrameProcessing {
		t.Fatalf("first frame=%+v", frames[0])
	}
	if frames[1].Status != types.FrameError || !strings.Contains(frames[1].Error, "bad magic") {
		t.Fatalf("terminal frame=%+v", frames[1])
	}
}

func TestStreamMidRunFailure(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{chunks: []string{"one ", "two ", "three"}, failAfter: 2, genErr: errors.New("device lost")}}
	m, _ := newTestManager(t, a)
	frames, err := collectFrames(t, m, GenerateRequest{Model: "alpha", Prompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	// processing, two generating frames, then exactly one error frame.
	if len(frames) != 4 {
		t.Fatalf("frames=%d want 4", len(frames))
	}
	last := frames[len(frames)-1]
	if last.Status != types.FrameError || !strings.Contains(last.Error, "device lost") {
		t.Fatalf("terminal frame=%+v", last)
	}
	for _, f := range frames[:len(frames)-1] {
		if f.Status == types.FrameError || f.Status == types.FrameComplete {
			t.Fatalf("terminal frame before the end: %+v", f)
		}
	}
}

func TestStreamTrimsTemplateMarkersAcrossChunks(t *testing.T) {
	// Marker split across chunk boundaries: trimming runs over the whole
	// accumulated buffer, not per chunk.
	a := &fakeAdapter{next: fakeEngine{chunks: []string{"<|im_start|>assistant\nHel", "lo<|im_end|>"}}}
	m, _ := newTestManager(t, a)
	frames, err := collectFrames(t, m, GenerateRequest{Model: "beta", Prompt: "hi"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	last := frames[len(frames)-1]
	if *last.Response != "Hello" {
		t.Fatalf("response=%q want %q", *last.Response, "Hello")
	}
}

func TestStreamEmitFailureStopsEngine(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{chunks: []string{"a", "b", "c", "d"}}}
	m, _ := newTestManager(t, a)
	sent := 0
	errBroken := errors.New("broken pipe")
	err := m.GenerateStream(context.Background(), GenerateRequest{Model: "alpha", Prompt: "hi"}, func(f types.GenerationFrame) error {
		sent++
		if sent == 3 {
			return errBroken
		}
		return nil
	})
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if sent != 3 {
		t.Fatalf("sent=%d; no frames after a failed emit", sent)
	}
}

func TestStreamClientDisconnectCancels(t *testing.T) {
	a := &fakeAdapter{next: fakeEngine{chunks: []string{"a", "b", "c", "d"}}}
	m, _ := newTestManager(t, a)
	ctx, cancel := context.WithCancel(context.Background())
	var frames []types.GenerationFrame
	err := m.GenerateStream(ctx, GenerateRequest{Model: "alpha", Prompt: "hi"}, func(f types.GenerationFrame) error {
		frames = append(frames, f)
		if len(frames) == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, f := range frames {
		if f.Status == types.FrameComplete {
			t.Fatalf("no terminal frame expected after disconnect, got %+v", f)
		}
	}
}
