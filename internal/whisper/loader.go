package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/skillsenselab/whisperd/internal/gate"
	"github.com/skillsenselab/whisperd/internal/logger"
	"github.com/skillsenselab/whisperd/internal/observability"
)

const (
	configArtifact  = "config.json"
	weightsArtifact = "model.safetensors"

	defaultRepoURL = "https://huggingface.co/openai/whisper-large-v3-turbo/resolve/main"
)

// LoaderConfig configures the one-time model load.
type LoaderConfig struct {
	// CacheDir is the local directory holding the two cached artifacts.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// RepoURL is the remote base URL the artifacts are fetched from when
	// absent from the cache.
	RepoURL string `yaml:"repo_url" mapstructure:"repo_url"`
	// FetchTimeout bounds each artifact download.
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *LoaderConfig) ApplyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join("data", ".whisper_cache")
	}
	if c.RepoURL == "" {
		c.RepoURL = defaultRepoURL
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 30 * time.Minute
	}
}

// Loader materializes the singleton engine exactly once and publishes the
// outcome into a readiness gate. It never retries and never crashes the
// process: a failed load leaves the gate permanently failed.
type Loader struct {
	cfg       LoaderConfig
	construct Constructor
	client    *http.Client
	log       *logger.Logger
}

// NewLoader creates a loader. The constructor is the external engine
// binding; it receives the parsed configuration and normalized weights.
func NewLoader(cfg LoaderConfig, construct Constructor, log *logger.Logger) *Loader {
	cfg.ApplyDefaults()
	return &Loader{
		cfg:       cfg,
		construct: construct,
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		log:       log.WithComponent("loader"),
	}
}

// Run performs the load and publishes the result into g. It is intended to
// be called once, in its own goroutine, before the server accepts traffic.
func (l *Loader) Run(ctx context.Context, g *gate.Gate[Engine]) {
	start := time.Now()

	ctx, span := observability.StartSpan(ctx, observability.SpanModelLoad)
	defer span.End()

	engine, err := l.load(ctx)
	if err != nil {
		span.RecordError(err)
		l.log.Error("Model load failed", logger.ErrorFields("load", err))
		g.Fail(fmt.Errorf("model load: %w", err))
		return
	}

	l.log.Info("Model loaded", map[string]interface{}{
		"cache_dir":   l.cfg.CacheDir,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	g.Succeed(engine)
}

func (l *Loader) load(ctx context.Context) (Engine, error) {
	if err := os.MkdirAll(l.cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	configPath := filepath.Join(l.cfg.CacheDir, configArtifact)
	weightsPath := filepath.Join(l.cfg.CacheDir, weightsArtifact)

	for name, path := range map[string]string{
		configArtifact:  configPath,
		weightsArtifact: weightsPath,
	} {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		l.log.Info("Fetching model artifact", map[string]interface{}{"artifact": name})
		if err := downloadToFile(ctx, l.client, l.cfg.RepoURL+"/"+name, path); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
	}

	cfg, weights, err := parseArtifacts(configPath, weightsPath)
	if err != nil {
		return nil, err
	}

	engine, err := l.construct(cfg, weights)
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}

	// Construction is eager: initialization cost is paid here, not on the
	// first request. Drop the parse buffers and force a collection before
	// publishing; the engine keeps only what it retained at construction.
	weights = nil
	runtime.GC()

	return engine, nil
}

func parseArtifacts(configPath, weightsPath string) (Config, []NamedTensor, error) {
	rawCfg, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(rawCfg, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}

	rawWeights, err := os.ReadFile(weightsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read weights: %w", err)
	}
	tensors, err := ParseSafetensors(rawWeights)
	if err != nil {
		return nil, nil, fmt.Errorf("parse weights: %w", err)
	}

	weights, err := NormalizeWeights(tensors)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize weights: %w", err)
	}
	return cfg, weights, nil
}
