// Package whisper loads the Whisper turbo model: it caches the remote
// artifacts, parses configuration and weights, normalizes the parameter
// layout, and constructs the inference engine behind the Engine contract.
// The numerical forward pass itself lives behind Constructor and is not
// part of this package.
package whisper

// Config is the deserialized model configuration (config.json).
type Config map[string]any

// Engine is the inference entry point of a fully constructed model.
// Implementations are safe for concurrent use: the model is read-only
// after construction and shared by all requests for the process lifetime.
type Engine interface {
	// Transcribe decodes the audio file at path and returns its transcript.
	// anyLang enables language auto-detection (false forces English-only),
	// quick selects the faster decoding mode.
	Transcribe(path string, anyLang, quick bool) (string, error)
}

// Constructor builds an Engine from a parsed configuration and normalized
// weights. It is injected into the Loader so the serving layer never depends
// on a concrete engine and tests can substitute a fake.
type Constructor func(cfg Config, weights []NamedTensor) (Engine, error)
