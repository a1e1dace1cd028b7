package turbo

import (
	"errors"
	"testing"

	"github.com/skillsenselab/whisperd/internal/whisper"
)

func validInputs() (whisper.Config, []whisper.NamedTensor) {
	cfg := whisper.Config{
		"num_mel_bins":   float64(128),
		"d_model":        float64(1280),
		"encoder_layers": float64(32),
		"decoder_layers": float64(4),
		"vocab_size":     float64(51866),
	}
	weights := []whisper.NamedTensor{
		{Name: "encoder.ln.weight", Tensor: whisper.Tensor{DType: "F32", Shape: []int{1}, Data: []byte{0, 0, 0, 0}}},
	}
	return cfg, weights
}

func TestNew_ReportsUnavailableRuntime(t *testing.T) {
	cfg, weights := validInputs()
	engine, err := New(cfg, weights)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if engine != nil {
		t.Fatal("expected nil engine")
	}
}

func TestNew_RejectsMissingConfigKey(t *testing.T) {
	cfg, weights := validInputs()
	delete(cfg, "vocab_size")
	if _, err := New(cfg, weights); err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want validation failure", err)
	}
}

func TestNew_RejectsEmptyWeights(t *testing.T) {
	cfg, _ := validInputs()
	if _, err := New(cfg, nil); err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want validation failure", err)
	}
}
