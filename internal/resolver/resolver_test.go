package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sannux/pixelguard/internal/cache"
	"github.com/sannux/pixelguard/internal/testutil"
)

func newTestResolver(maxHops int, c cache.Cache) *Resolver {
	return New(Config{
		MaxHops:    maxHops,
		HopTimeout: 2 * time.Second,
	}, nil, c, testutil.NullLogger())
}

func TestResolve_NoRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := newTestResolver(5, nil)
	final, chain, err := r.Resolve(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if final != server.URL {
		t.Errorf("final = %q, want %q", final, server.URL)
	}
	if len(chain) != 1 || chain[0] != server.URL {
		t.Errorf("chain = %v, want single-element chain of the input", chain)
	}
}

func TestResolve_FollowsChain(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	middle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer middle.Close()

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, middle.URL, http.StatusMovedPermanently)
	}))
	defer first.Close()

	r := newTestResolver(5, nil)
	got, chain, err := r.Resolve(context.Background(), first.URL)

	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != final.URL {
		t.Errorf("final = %q, want %q", got, final.URL)
	}
	want := []string{first.URL, middle.URL, final.URL}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}
}

func TestResolve_RelativeLocation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r := newTestResolver(5, nil)
	final, chain, err := r.Resolve(context.Background(), server.URL+"/start")

	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if final != server.URL+"/end" {
		t.Errorf("final = %q, want %q", final, server.URL+"/end")
	}
	if len(chain) != 2 {
		t.Errorf("chain = %v, want 2 hops", chain)
	}
}

func TestResolve_LoopTerminatesAtMaxHops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	maxHops := 5
	r := newTestResolver(maxHops, nil)
	_, chain, err := r.Resolve(context.Background(), server.URL+"/loop")

	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(chain) != maxHops {
		t.Errorf("chain length = %d, want exactly %d", len(chain), maxHops)
	}
}

func TestResolve_MissingLocationHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// redirect status without a Location header
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	r := newTestResolver(5, nil)
	final, chain, err := r.Resolve(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("malformed redirect must not error, got %v", err)
	}
	if final != server.URL {
		t.Errorf("final = %q, want the last reachable URL %q", final, server.URL)
	}
	if len(chain) != 1 {
		t.Errorf("chain = %v, want chain as built so far", chain)
	}
}

func TestResolve_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead := server.URL
	server.Close()

	r := newTestResolver(5, nil)
	_, chain, err := r.Resolve(context.Background(), dead)

	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	if len(chain) != 1 || chain[0] != dead {
		t.Errorf("chain = %v, want the partial chain built so far", chain)
	}
}

func TestResolve_CachesResult(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := cache.NewMemory(time.Minute)
	defer c.Stop()

	r := newTestResolver(5, c)

	for i := 0; i < 3; i++ {
		final, chain, err := r.Resolve(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if final != server.URL || len(chain) != 1 {
			t.Fatalf("unexpected result: final=%q chain=%v", final, chain)
		}
	}

	if hits != 1 {
		t.Errorf("expected 1 upstream hit with caching, got %d", hits)
	}
}
