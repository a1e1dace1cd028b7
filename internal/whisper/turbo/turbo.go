// Package turbo binds the native Whisper turbo inference engine.
//
// The numerical forward pass is provided by the native runtime; builds
// without it get a constructor that validates its inputs and then reports
// the engine as unavailable, which the readiness gate surfaces as a
// permanent load failure.
package turbo

import (
	"errors"
	"fmt"

	"github.com/skillsenselab/whisperd/internal/whisper"
)

// ErrUnavailable is returned by New when the native runtime is not linked
// into this build.
var ErrUnavailable = errors.New("turbo: native inference runtime is not available in this build")

// Required configuration keys for the turbo architecture.
var requiredConfigKeys = []string{
	"num_mel_bins",
	"d_model",
	"encoder_layers",
	"decoder_layers",
	"vocab_size",
}

// New constructs the native engine from a parsed model configuration and
// normalized weights. It satisfies whisper.Constructor.
func New(cfg whisper.Config, weights []whisper.NamedTensor) (whisper.Engine, error) {
	if err := validate(cfg, weights); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}

func validate(cfg whisper.Config, weights []whisper.NamedTensor) error {
	if len(cfg) == 0 {
		return errors.New("turbo: empty model configuration")
	}
	for _, key := range requiredConfigKeys {
		if _, ok := cfg[key]; !ok {
			return fmt.Errorf("turbo: model configuration missing %q", key)
		}
	}
	if len(weights) == 0 {
		return errors.New("turbo: no weight tensors")
	}
	for _, w := range weights {
		if len(w.Data) == 0 {
			return fmt.Errorf("turbo: tensor %q has no data", w.Name)
		}
	}
	return nil
}
