package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLookupHostLiteral(t *testing.T) {
	t.Parallel()

	r := New(time.Minute, 0, func(context.Context, string) ([]string, error) {
		t.Error("lookup called for an IP literal")
		return nil, nil
	})

	for _, host := range []string{"127.0.0.1", "::1"} {
		addrs, err := r.LookupHost(context.Background(), host)
		if err != nil {
			t.Fatal(err)
		}
		if len(addrs) != 1 || addrs[0] != host {
			t.Fatalf("got %v for %s", addrs, host)
		}
	}
}

func TestLookupHostCaches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	r := New(time.Minute, 0, func(_ context.Context, host string) ([]string, error) {
		calls.Add(1)
		return []string{"192.0.2.10"}, nil
	})

	for range 3 {
		addrs, err := r.LookupHost(context.Background(), "mail.example.com")
		if err != nil {
			t.Fatal(err)
		}
		if addrs[0] != "192.0.2.10" {
			t.Fatalf("got %v", addrs)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 lookup, got %d", got)
	}

	r.Flush()
	if _, err := r.LookupHost(context.Background(), "mail.example.com"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 lookups after flush, got %d", got)
	}
}

func TestLookupHostNoCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	r := New(0, 0, func(context.Context, string) ([]string, error) {
		calls.Add(1)
		return []string{"192.0.2.10"}, nil
	})

	for range 2 {
		if _, err := r.LookupHost(context.Background(), "mail.example.com"); err != nil {
			t.Fatal(err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 lookups, got %d", got)
	}
}

func TestLookupHostCoalesces(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	r := New(0, 0, func(context.Context, string) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"192.0.2.10"}, nil
	})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.LookupHost(context.Background(), "mail.example.com")
			errs <- err
		}()
	}

	// Let the waiters pile up behind the first lookup.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 lookup, got %d", got)
	}
}

func TestLookupHostError(t *testing.T) {
	t.Parallel()

	errLookup := errors.New("no such host")
	r := New(time.Minute, 0, func(context.Context, string) ([]string, error) {
		return nil, errLookup
	})

	if _, err := r.LookupHost(context.Background(), "nowhere.invalid"); !errors.Is(err, errLookup) {
		t.Fatalf("err=%v", err)
	}

	r = New(time.Minute, 0, func(context.Context, string) ([]string, error) {
		return nil, nil
	})
	if _, err := r.LookupHost(context.Background(), "empty.invalid"); err == nil {
		t.Fatal("expected error for empty answer")
	}
}

func TestLookupHostContextCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	r := New(0, 0, func(context.Context, string) ([]string, error) {
		<-release
		return []string{"192.0.2.10"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.LookupHost(ctx, "slow.example.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestLookupHostTimeout(t *testing.T) {
	t.Parallel()

	r := New(0, 50*time.Millisecond, func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	// The caller has no deadline; the lookup's own bound ends it.
	start := time.Now()
	_, err := r.LookupHost(context.Background(), "slow.example.com")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lookup took %s", elapsed)
	}
}
