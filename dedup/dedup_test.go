package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_ConcurrentCallsShareOneFactoryInvocation(t *testing.T) {
	d := New(Config{TTL: 50 * time.Millisecond, MaxEntries: 16})
	var calls int32
	start := make(chan struct{})

	const n = 10
	results := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			v, err, _ := d.Do(context.Background(), "key", func(ctx context.Context) ([]byte, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(20 * time.Millisecond)
				return []byte("result"), nil
			})
			results[i] = v
			errs[i] = err
		}(i)
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("factory invoked %d times, want exactly 1", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d error = %v", i, err)
		}
		if string(results[i]) != "result" {
			t.Errorf("caller %d result = %q, want %q", i, results[i], "result")
		}
	}
}

func TestDo_TTLCacheCollapsesBurstAfterSettle(t *testing.T) {
	d := New(Config{TTL: 200 * time.Millisecond, MaxEntries: 16})
	var calls int32

	factory := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v"), nil
	}

	if _, err, _ := d.Do(context.Background(), "key", factory); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err, _ := d.Do(context.Background(), "key", factory); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("factory invoked %d times within TTL window, want 1", got)
	}
}

func TestDo_DifferentKeysDoNotShare(t *testing.T) {
	d := New(Config{TTL: 50 * time.Millisecond, MaxEntries: 16})
	var calls int32
	factory := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v"), nil
	}

	_, _, _ = d.Do(context.Background(), "a", factory)
	_, _, _ = d.Do(context.Background(), "b", factory)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("factory invoked %d times for distinct keys, want 2", got)
	}
}

func TestDoJSON_RoundTrips(t *testing.T) {
	d := New(Config{TTL: 50 * time.Millisecond, MaxEntries: 16})
	type payload struct {
		A int
		B string
	}
	want := payload{A: 1, B: "x"}

	got, err, _ := DoJSON(context.Background(), d, "key", func(ctx context.Context) (payload, error) {
		return want, nil
	})
	if err != nil {
		t.Fatalf("DoJSON error = %v", err)
	}
	if got != want {
		t.Errorf("DoJSON() = %+v, want %+v", got, want)
	}
}

func TestBoundedCache_EvictsOldestBeyondMaxEntries(t *testing.T) {
	bc := newBoundedCache(2)
	ctx := context.Background()

	bc.Set(ctx, "a", []byte("1"), time.Minute)
	bc.Set(ctx, "b", []byte("2"), time.Minute)
	bc.Set(ctx, "c", []byte("3"), time.Minute)

	if _, ok := bc.Get(ctx, "a"); ok {
		t.Error("expected the oldest key to be evicted once max entries exceeded")
	}
	if _, ok := bc.Get(ctx, "b"); !ok {
		t.Error("expected b to survive eviction")
	}
	if _, ok := bc.Get(ctx, "c"); !ok {
		t.Error("expected c to survive eviction")
	}
}
