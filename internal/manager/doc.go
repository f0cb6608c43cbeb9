// Package manager owns the single model slot and the generation pipeline.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - engine.go: Engine/EngineAdapter abstraction and option mapping.
//   - errors.go: error types and helpers (IsUnknownModel, IsModelLoad, ...).
//   - slot.go: Load/Release/Status slot lifecycle; reuse-or-swap decisions.
//   - admission.go: bounded FIFO queue with a single in-flight generation.
//   - compose.go: raw and templated prompt composition, output trimming.
//   - generate.go: single-shot and streaming generation entry points.
//   - tokens.go: token counting and context-window accounting.
//   - paraminfo.go: parameter listing for the HTTP surface.
//   - events.go: lifecycle event publishing.
//
// Engine runtimes:
//
//   - In-process llama (go-llama.cpp) behind the `llama` build tag
//     (llama.go). A no-CGO stub compiles otherwise (llama_stub.go) and
//     fails fast with an engine-unavailable error instead of mocking.
//
// External packages should depend on public methods only (New, Load,
// Release, Status, Generate, GenerateStream, CountTokens, ContextUsage).
package manager
