package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoReturnsResult(t *testing.T) {
	g := New()
	val, err := g.Do("key", func() (any, error) {
		return "value", nil
	})
	if err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}
	if val != "value" {
		t.Errorf("Do() = %v, want value", val)
	}
}

func TestDoPropagatesError(t *testing.T) {
	g := New()
	wantErr := errors.New("boom")
	_, err := g.Do("key", func() (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
}

// Concurrent callers on one key share a single execution and its result.
func TestDoCoalescesConcurrentCalls(t *testing.T) {
	g := New()
	var executions int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func() (any, error) {
		atomic.AddInt32(&executions, 1)
		close(started)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make(chan any, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, _ := g.Do("key", fn)
		results <- v
	}()

	<-started
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := g.Do("key", func() (any, error) {
				atomic.AddInt32(&executions, 1)
				return -1, nil
			})
			results <- v
		}()
	}

	// Give the waiters time to join the in-flight call before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	if n := atomic.LoadInt32(&executions); n != 1 {
		t.Errorf("expected 1 execution, got %d", n)
	}
	for v := range results {
		if v != 42 {
			t.Errorf("caller received %v, want the shared result 42", v)
		}
	}
}

func TestDoDistinctKeysRunIndependently(t *testing.T) {
	g := New()
	a, _ := g.Do("a", func() (any, error) { return "a", nil })
	b, _ := g.Do("b", func() (any, error) { return "b", nil })
	if a != "a" || b != "b" {
		t.Errorf("distinct keys mixed results: %v, %v", a, b)
	}
}

// The key is forgotten after completion, so sequential calls run fresh.
func TestDoSequentialCallsExecuteEachTime(t *testing.T) {
	g := New()
	var executions int32
	for i := 0; i < 3; i++ {
		g.Do("key", func() (any, error) {
			atomic.AddInt32(&executions, 1)
			return nil, nil
		})
	}
	if n := atomic.LoadInt32(&executions); n != 3 {
		t.Errorf("expected 3 executions, got %d", n)
	}
}

func TestForget(t *testing.T) {
	g := New()
	started := make(chan struct{})
	release := make(chan struct{})

	go g.Do("key", func() (any, error) {
		close(started)
		<-release
		return "slow", nil
	})
	<-started

	g.Forget("key")

	// After Forget, a new call executes instead of joining the slow one.
	done := make(chan any, 1)
	go func() {
		v, _ := g.Do("key", func() (any, error) { return "fresh", nil })
		done <- v
	}()

	select {
	case v := <-done:
		if v != "fresh" {
			t.Errorf("got %v, want fresh", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Do after Forget blocked on the forgotten call")
	}
	close(release)
}
