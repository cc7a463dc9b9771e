package licenses

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubCache struct {
	values map[string]string
	getErr error
	sets   int
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return value, nil
}

func (s *stubCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value.(string)
	s.sets++
	return nil
}

func newResolverForTests(t *testing.T, gatewayURL string, cache metadataCache) *Resolver {
	t.Helper()
	resolver, err := NewResolver(ResolverOptions{
		GatewayURL: gatewayURL,
		Timeout:    2 * time.Second,
		Cache:      cache,
		CacheTTL:   time.Hour,
	})
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}
	return resolver
}

func TestResolver_FetchesDocument(t *testing.T) {
	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/QmDoc" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"title":"Night Drive","artist":"Mol","audioHash":"QmAudio"}`))
	}))
	defer upstream.Close()

	resolver := newResolverForTests(t, upstream.URL, nil)
	doc := resolver.Resolve(context.Background(), "QmDoc")
	if doc.Title != "Night Drive" || doc.AudioHash != "QmAudio" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if hits != 1 {
		t.Fatalf("expected one gateway hit, got %d", hits)
	}
}

func TestResolver_EmptyRefSkipsGateway(t *testing.T) {
	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer upstream.Close()

	resolver := newResolverForTests(t, upstream.URL, nil)
	if doc := resolver.Resolve(context.Background(), "  "); !doc.IsZero() {
		t.Fatalf("expected zero document, got %+v", doc)
	}
	if hits != 0 {
		t.Fatalf("gateway must not be called for an empty ref, hits=%d", hits)
	}
}

func TestResolver_GatewayErrorDegradesToZero(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unpinned", http.StatusNotFound)
	}))
	defer upstream.Close()

	resolver := newResolverForTests(t, upstream.URL, nil)
	if doc := resolver.Resolve(context.Background(), "QmGone"); !doc.IsZero() {
		t.Fatalf("expected zero document, got %+v", doc)
	}
}

func TestResolver_BadJSONDegradesToZero(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer upstream.Close()

	resolver := newResolverForTests(t, upstream.URL, nil)
	if doc := resolver.Resolve(context.Background(), "QmHTML"); !doc.IsZero() {
		t.Fatalf("expected zero document, got %+v", doc)
	}
}

func TestResolver_CacheShortCircuitsGateway(t *testing.T) {
	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"title":"Night Drive"}`))
	}))
	defer upstream.Close()

	cache := &stubCache{}
	resolver := newResolverForTests(t, upstream.URL, cache)

	first := resolver.Resolve(context.Background(), "QmDoc")
	second := resolver.Resolve(context.Background(), "QmDoc")
	if first.Title != "Night Drive" || second.Title != "Night Drive" {
		t.Fatalf("unexpected documents %+v / %+v", first, second)
	}
	if hits != 1 {
		t.Fatalf("expected the second read to come from cache, gateway hits=%d", hits)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
}

func TestResolver_FailuresAreNotCached(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "flaky", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	cache := &stubCache{}
	resolver := newResolverForTests(t, upstream.URL, cache)

	resolver.Resolve(context.Background(), "QmFlaky")
	if cache.sets != 0 {
		t.Fatalf("a failed fetch must not be cached, got %d writes", cache.sets)
	}
}

func TestResolver_GatewayURL(t *testing.T) {
	resolver := newResolverForTests(t, "https://gateway.example/ipfs/", nil)
	if got := resolver.GatewayURL("QmDoc"); got != "https://gateway.example/ipfs/QmDoc" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := resolver.GatewayURL(""); got != "" {
		t.Fatalf("expected empty url for empty ref, got %q", got)
	}
}
