package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmit_ReturnsValue(t *testing.T) {
	p := New(Options{Core: 2, QueueSize: 4})
	defer p.Shutdown(context.Background())

	f, err := Submit(context.Background(), p, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	v, err := f.Wait(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
	if _, _, status, ok := f.Peek(); !ok || status != Succeeded {
		t.Errorf("Peek status = %v, %v", status, ok)
	}
}

func TestSubmit_RecordsFailure(t *testing.T) {
	p := New(Options{Core: 1})
	defer p.Shutdown(context.Background())

	boom := errors.New("boom")
	f, err := Submit(context.Background(), p, func(context.Context) (string, error) {
		return "", boom
	})
	if err != nil {
		t.Fatal(err)
	}
	<-f.Done()

	_, gotErr, status, _ := f.Peek()
	if !errors.Is(gotErr, boom) || status != Failed {
		t.Errorf("got (%v, %v), want (boom, Failed)", gotErr, status)
	}
}

func TestSubmit_RecoversPanic(t *testing.T) {
	p := New(Options{Core: 1, QueueSize: 2})
	defer p.Shutdown(context.Background())

	f, err := Submit(context.Background(), p, func(context.Context) (int, error) {
		panic("unit blew up")
	})
	if err != nil {
		t.Fatal(err)
	}
	<-f.Done()

	_, gotErr, status, _ := f.Peek()
	if !errors.Is(gotErr, ErrPanicked) || status != Failed {
		t.Errorf("got (%v, %v), want (ErrPanicked, Failed)", gotErr, status)
	}

	// the worker keeps serving jobs
	next, err := Submit(context.Background(), p, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, err := next.Wait(context.Background()); err != nil || v != 7 {
		t.Errorf("got (%d, %v), want (7, nil)", v, err)
	}
}

func TestSubmit_RejectsWhenSaturated(t *testing.T) {
	p := New(Options{Core: 1, Max: 2, QueueSize: 1})
	release := make(chan struct{})
	defer func() {
		close(release)
		p.Shutdown(context.Background())
	}()

	block := func(context.Context) (int, error) {
		<-release
		return 0, nil
	}

	// core worker, queue slot, burst worker
	for i := 0; i < 3; i++ {
		if _, err := Submit(context.Background(), p, block); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := Submit(context.Background(), p, block); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if p.Running() != 2 {
		t.Errorf("Running = %d, want 2", p.Running())
	}
}

func TestSubmit_AfterShutdown(t *testing.T) {
	p := New(Options{Core: 1})
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := Submit(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFuture_CancelInterruptsJob(t *testing.T) {
	p := New(Options{Core: 1})
	defer p.Shutdown(context.Background())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	f, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	<-started
	f.Cancel()

	_, gotErr, status, ok := f.Peek()
	if !ok || status != Cancelled || !errors.Is(gotErr, context.Canceled) {
		t.Fatalf("got (%v, %v, %v)", gotErr, status, ok)
	}

	deadline := time.Now().Add(time.Second)
	for !sawCancel.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !sawCancel.Load() {
		t.Error("job context was not cancelled")
	}
}

func TestPool_BurstWorkerExitsWhenIdle(t *testing.T) {
	p := New(Options{Core: 1, Max: 2, QueueSize: 0, KeepAlive: 20 * time.Millisecond})
	defer p.Shutdown(context.Background())

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		if _, err := Submit(context.Background(), p, func(context.Context) (int, error) {
			defer wg.Done()
			<-release
			return 0, nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	close(release)
	wg.Wait()

	deadline := time.Now().Add(time.Second)
	for p.Running() > 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.Running() != 1 {
		t.Errorf("Running = %d, want only the core worker", p.Running())
	}
}

func TestShutdown_DrainsQueue(t *testing.T) {
	p := New(Options{Core: 1, QueueSize: 10})

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if _, err := Submit(context.Background(), p, func(context.Context) (int, error) {
			time.Sleep(time.Millisecond)
			ran.Add(1)
			return 0, nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ran.Load() != 5 {
		t.Errorf("ran %d jobs, want 5", ran.Load())
	}
}

func TestOptimalConcurrency(t *testing.T) {
	n := OptimalConcurrency()
	if n < 1 || n > maxCoreWorkers {
		t.Errorf("OptimalConcurrency() = %d", n)
	}
}
