package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(2)

	var (
		current int32
		peak    int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func() {
				n := atomic.AddInt32(&current, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestPool_DoReturnsAfterTask(t *testing.T) {
	p := New(1)

	ran := false
	if err := p.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Error("task did not run before Do returned")
	}
}

func TestPool_CanceledWhileWaiting(t *testing.T) {
	p := New(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() {
			close(started)
			<-release
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func() {
		t.Error("task must not run when ctx is already canceled")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestPool_PanicReachesCaller(t *testing.T) {
	p := New(1)

	defer func() {
		if got := recover(); got != "boom" {
			t.Errorf("recover() = %v, want %q", got, "boom")
		}
	}()
	_ = p.Do(context.Background(), func() { panic("boom") })
	t.Error("Do() returned instead of panicking")
}

func TestPool_SlotFreedAfterPanic(t *testing.T) {
	p := New(1)

	func() {
		defer func() { _ = recover() }()
		_ = p.Do(context.Background(), func() { panic("boom") })
	}()

	ran := false
	if err := p.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Error("task did not run after a panicking predecessor")
	}
}

func TestNew_ClampsSize(t *testing.T) {
	if got := New(0).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
	if got := New(-3).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}
