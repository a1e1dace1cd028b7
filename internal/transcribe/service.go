// Package transcribe implements the request lifecycle for transcription:
// await the model, stage the upload to disk, run inference on the worker
// pool, and always clean up the staged file.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/whisperd/internal/apperrors"
	"github.com/skillsenselab/whisperd/internal/gate"
	"github.com/skillsenselab/whisperd/internal/logger"
	"github.com/skillsenselab/whisperd/internal/observability"
	"github.com/skillsenselab/whisperd/internal/pool"
	"github.com/skillsenselab/whisperd/internal/whisper"
)

// Options are the per-request inference knobs. Both default to true.
type Options struct {
	Quick   bool
	AnyLang bool
}

// DefaultOptions returns the options used when the client specifies nothing.
func DefaultOptions() Options {
	return Options{Quick: true, AnyLang: true}
}

// Result is the outcome of a successful transcription.
type Result struct {
	Text        string  `json:"text"`
	ElapsedTime float64 `json:"elapsed_time"`
	QuickMode   bool    `json:"quick_mode"`
	AnyLang     bool    `json:"any_lang"`
}

// Config configures the transcription service.
type Config struct {
	// StagingDir is where uploads are staged before inference. Defaults to
	// the system temp directory.
	StagingDir string `yaml:"staging_dir" mapstructure:"staging_dir"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.StagingDir == "" {
		c.StagingDir = os.TempDir()
	}
}

// Service coordinates model readiness, upload staging, and pooled inference.
type Service struct {
	cfg  Config
	gate *gate.Gate[whisper.Engine]
	pool *pool.Pool
	log  *logger.Logger
}

// New creates a transcription service bound to a model gate and worker pool.
func New(cfg Config, g *gate.Gate[whisper.Engine], p *pool.Pool, log *logger.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		cfg:  cfg,
		gate: g,
		pool: p,
		log:  log.WithComponent("transcribe"),
	}
}

// Transcribe runs one transcription request end to end. The upload is read
// from r and staged under a unique name; the staged file is removed on every
// path, success or failure. Errors are *apperrors.AppError except for
// context cancellation, which is returned as-is.
func (s *Service) Transcribe(ctx context.Context, filename string, r io.Reader, opts Options) (*Result, error) {
	engine, err := s.gate.Await(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.ModelLoading().WithCause(err)
		}
		return nil, apperrors.ModelUnavailable(err)
	}

	// The clock starts before staging: reported elapsed time covers the
	// full staging-to-result interval, not just inference.
	start := time.Now()

	stageCtx, stageSpan := observability.StartSpan(ctx, observability.SpanStaging)
	path, err := s.stage(filename, r)
	if err != nil {
		stageSpan.RecordError(err)
		stageSpan.End()
		return nil, apperrors.StagingFailed(err)
	}
	stageSpan.End()
	defer s.cleanup(path)

	infCtx, infSpan := observability.StartSpan(stageCtx, observability.SpanInference)
	observability.SetSpanAttribute(infCtx, "quick", opts.Quick)
	observability.SetSpanAttribute(infCtx, "any_lang", opts.AnyLang)
	text, err := pool.Offload(infCtx, s.pool, func() (string, error) {
		return engine.Transcribe(path, opts.AnyLang, opts.Quick)
	})
	if err != nil {
		infSpan.RecordError(err)
	}
	infSpan.End()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperrors.InferenceFailed(err)
	}

	elapsed := roundSeconds(time.Since(start))
	s.log.Info("Transcription completed", map[string]interface{}{
		"elapsed_s": elapsed,
		"quick":     opts.Quick,
		"any_lang":  opts.AnyLang,
	})

	return &Result{
		Text:        strings.TrimSpace(text),
		ElapsedTime: elapsed,
		QuickMode:   opts.Quick,
		AnyLang:     opts.AnyLang,
	}, nil
}

// stage copies the upload to a uniquely named file, preserving the original
// extension so format sniffing by the engine keeps working.
func (s *Service) stage(filename string, r io.Reader) (string, error) {
	ext := filepath.Ext(filename)
	path := filepath.Join(s.cfg.StagingDir, uuid.New().String()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write staging file: %w", err)
	}
	return path, nil
}

// cleanup removes the staged file. Failure to remove is logged, never
// surfaced: the request outcome must not depend on temp-file hygiene.
func (s *Service) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove staged file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// roundSeconds converts a duration to seconds rounded to two decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
