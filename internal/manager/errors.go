package manager

import "fmt"

// unknownModelError signals an identity not present in the static registry.
type unknownModelError struct{ id string }

func (e unknownModelError) Error() string { return "unknown model: " + e.id }

// ErrUnknownModel constructs an unknownModelError.
func ErrUnknownModel(id string) error { return unknownModelError{id: id} }

// IsUnknownModel reports whether err indicates a missing model identity.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// modelLoadError signals a failed engine construction. The slot is left
// empty; the native failure reason is carried through.
type modelLoadError struct {
	id     string
	reason error
}

func (e modelLoadError) Error() string { return fmt.Sprintf("load model %s: %v", e.id, e.reason) }
func (e modelLoadError) Unwrap() error { return e.reason }

// ErrModelLoad constructs a modelLoadError.
func ErrModelLoad(id string, reason error) error { return modelLoadError{id: id, reason: reason} }

// IsModelLoad reports whether err indicates a failed engine construction.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}

// generationError signals an engine failure mid-run.
type generationError struct{ reason error }

func (e generationError) Error() string { return "generation failed: " + e.reason.Error() }
func (e generationError) Unwrap() error { return e.reason }

// ErrGeneration constructs a generationError.
func ErrGeneration(reason error) error { return generationError{reason: reason} }

// IsGeneration reports whether err indicates an engine failure mid-run.
func IsGeneration(err error) bool {
	_, ok := err.(generationError)
	return ok
}

// emptyPromptError signals a request with no prompt text.
type emptyPromptError struct{}

func (emptyPromptError) Error() string { return "no prompt provided" }

// ErrEmptyPrompt constructs an emptyPromptError.
func ErrEmptyPrompt() error { return emptyPromptError{} }

// IsEmptyPrompt reports whether err indicates a missing prompt.
func IsEmptyPrompt(err error) bool {
	_, ok := err.(emptyPromptError)
	return ok
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// engineUnavailableError signals a binary built without engine support so
// the HTTP layer can return 503 instead of 500.
type engineUnavailableError struct{ msg string }

func (e engineUnavailableError) Error() string { return e.msg }

// ErrEngineUnavailable constructs an engineUnavailableError.
func ErrEngineUnavailable(msg string) error { return engineUnavailableError{msg: msg} }

// IsEngineUnavailable reports whether err indicates a missing engine runtime.
func IsEngineUnavailable(err error) bool {
	_, ok := err.(engineUnavailableError)
	return ok
}
