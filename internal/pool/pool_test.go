package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skillsenselab/whisperd/internal/pool"
)

func TestOffload_ReturnsResult(t *testing.T) {
	p := pool.New(2)
	defer p.Close()

	got, err := pool.Offload(context.Background(), p, func() (string, error) {
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}
}

func TestOffload_PropagatesError(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	wantErr := errors.New("decode failed")
	_, err := pool.Offload(context.Background(), p, func() (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestOffload_RecoverPanic(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	_, err := pool.Offload(context.Background(), p, func() (int, error) {
		panic("native crash")
	})
	if err == nil {
		t.Fatal("expected error from panicking job")
	}

	// The worker must survive the panic and keep serving.
	got, err := pool.Offload(context.Background(), p, func() (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("pool unusable after panic: got %d, err %v", got, err)
	}
}

func TestOffload_BoundsConcurrency(t *testing.T) {
	const workers = 2
	p := pool.New(workers)
	defer p.Close()

	var running, peak atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Offload(context.Background(), p, func() (struct{}, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				<-release
				running.Add(-1)
				return struct{}{}, nil
			})
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := peak.Load(); got > workers {
		t.Fatalf("expected at most %d concurrent jobs, observed %d", workers, got)
	}
}

func TestOffload_AdmissionCancellation(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	block := make(chan struct{})
	go func() {
		_, _ = pool.Offload(context.Background(), p, func() (struct{}, error) {
			<-block
			return struct{}{}, nil
		})
	}()

	// Wait until the single worker is occupied.
	for p.InUse() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.Offload(ctx, p, func() (struct{}, error) {
		t.Error("job should never be dispatched")
		return struct{}{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(block)
}

func TestOffload_DispatchedWorkDiscardedOnCancel(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	started := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := pool.Offload(ctx, p, func() (string, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		close(finished)
		return "late", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The dispatched call still runs to completion; only its result is dropped.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("in-flight job did not run to completion")
	}
}

func TestInUseAndWorkers(t *testing.T) {
	p := pool.New(3)
	defer p.Close()

	if p.Workers() != 3 {
		t.Fatalf("expected 3 workers, got %d", p.Workers())
	}

	block := make(chan struct{})
	go func() {
		_, _ = pool.Offload(context.Background(), p, func() (struct{}, error) {
			<-block
			return struct{}{}, nil
		})
	}()

	for p.InUse() != 1 {
		time.Sleep(time.Millisecond)
	}
	close(block)
}
