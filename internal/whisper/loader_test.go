package whisper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/skillsenselab/whisperd/internal/gate"
	"github.com/skillsenselab/whisperd/internal/logger"
	"github.com/skillsenselab/whisperd/internal/observability"
)

type fakeEngine struct{ text string }

func (f *fakeEngine) Transcribe(path string, anyLang, quick bool) (string, error) {
	return f.text, nil
}

// artifactServer serves a minimal model repository over HTTP.
func artifactServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	weights := buildSafetensors(t, map[string]Tensor{
		"model.decoder.embed_positions.weight": {DType: "F32", Shape: []int{2}, Data: f32Bytes(1, 2)},
		"model.encoder.conv1.weight":           {DType: "F32", Shape: []int{1, 2, 3}, Data: f32Bytes(0, 1, 2, 3, 4, 5)},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/config.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"num_mel_bins":128,"d_model":1280}`))
	})
	mux.HandleFunc("/model.safetensors", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(weights)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testLoader(t *testing.T, repoURL, cacheDir string, construct Constructor) *Loader {
	t.Helper()
	return NewLoader(LoaderConfig{
		CacheDir:     cacheDir,
		RepoURL:      repoURL,
		FetchTimeout: 10 * time.Second,
	}, construct, logger.NewDefault("test"))
}

func TestLoader_FetchesParsesAndPublishes(t *testing.T) {
	var hits atomic.Int64
	srv := artifactServer(t, &hits)
	cacheDir := filepath.Join(t.TempDir(), "cache")

	var gotCfg Config
	var gotWeights []NamedTensor
	construct := func(cfg Config, weights []NamedTensor) (Engine, error) {
		gotCfg = cfg
		gotWeights = weights
		return &fakeEngine{text: "ok"}, nil
	}

	g := gate.New[Engine]()
	testLoader(t, srv.URL, cacheDir, construct).Run(context.Background(), g)

	engine, err := g.Await(context.Background())
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if _, ok := engine.(*fakeEngine); !ok {
		t.Fatalf("unexpected engine %T", engine)
	}

	if gotCfg["d_model"] != float64(1280) {
		t.Errorf("d_model = %v, want 1280", gotCfg["d_model"])
	}
	if len(gotWeights) != 2 {
		t.Fatalf("expected 2 tensors, got %d", len(gotWeights))
	}
	// Normalization happened before construction.
	if gotWeights[0].Name != "model.decoder.positional_embedding" {
		t.Errorf("first tensor = %q, want renamed positional embedding", gotWeights[0].Name)
	}

	for _, name := range []string{configArtifact, weightsArtifact} {
		if _, err := os.Stat(filepath.Join(cacheDir, name)); err != nil {
			t.Errorf("artifact %s not cached: %v", name, err)
		}
	}
}

func TestLoader_ReusesCachedArtifacts(t *testing.T) {
	var hits atomic.Int64
	srv := artifactServer(t, &hits)
	cacheDir := filepath.Join(t.TempDir(), "cache")
	construct := func(Config, []NamedTensor) (Engine, error) {
		return &fakeEngine{}, nil
	}

	g1 := gate.New[Engine]()
	testLoader(t, srv.URL, cacheDir, construct).Run(context.Background(), g1)
	if _, err := g1.Await(context.Background()); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	first := hits.Load()
	if first != 2 {
		t.Fatalf("expected 2 fetches on cold cache, got %d", first)
	}

	g2 := gate.New[Engine]()
	testLoader(t, srv.URL, cacheDir, construct).Run(context.Background(), g2)
	if _, err := g2.Await(context.Background()); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if hits.Load() != first {
		t.Errorf("warm cache refetched: %d fetches total", hits.Load())
	}
}

func TestLoader_FetchFailureFailsGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	g := gate.New[Engine]()
	construct := func(Config, []NamedTensor) (Engine, error) {
		t.Fatal("constructor must not run when fetch fails")
		return nil, nil
	}
	testLoader(t, srv.URL, filepath.Join(t.TempDir(), "cache"), construct).Run(context.Background(), g)

	if _, err := g.Await(context.Background()); err == nil {
		t.Fatal("expected gate failure")
	}
	if !g.Ready() || g.Err() == nil {
		t.Error("gate should be published with an error")
	}
}

func TestLoader_ConstructorFailureFailsGate(t *testing.T) {
	var hits atomic.Int64
	srv := artifactServer(t, &hits)

	wantErr := errors.New("no native runtime")
	construct := func(Config, []NamedTensor) (Engine, error) {
		return nil, wantErr
	}

	g := gate.New[Engine]()
	testLoader(t, srv.URL, filepath.Join(t.TempDir(), "cache"), construct).Run(context.Background(), g)

	_, err := g.Await(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestLoader_TracesModelLoad(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	var hits atomic.Int64
	srv := artifactServer(t, &hits)
	construct := func(Config, []NamedTensor) (Engine, error) {
		return &fakeEngine{}, nil
	}

	g := gate.New[Engine]()
	testLoader(t, srv.URL, filepath.Join(t.TempDir(), "cache"), construct).Run(context.Background(), g)
	if _, err := g.Await(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	found := false
	for _, s := range recorder.Ended() {
		if s.Name() == observability.SpanModelLoad {
			found = true
		}
	}
	if !found {
		t.Error("model load span not recorded")
	}
}

func TestLoader_CorruptCachedWeightsFailGate(t *testing.T) {
	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cacheDir, configArtifact), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, weightsArtifact), []byte("not a safetensors file"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := gate.New[Engine]()
	construct := func(Config, []NamedTensor) (Engine, error) {
		t.Fatal("constructor must not run on parse failure")
		return nil, nil
	}
	testLoader(t, "http://127.0.0.1:0", cacheDir, construct).Run(context.Background(), g)

	if _, err := g.Await(context.Background()); err == nil {
		t.Fatal("expected gate failure for corrupt weights")
	}
}
