package licenses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soundlease/soundlease-backend/pkg/logger"
	"github.com/soundlease/soundlease-backend/pkg/metrics"
	"github.com/soundlease/soundlease-backend/pkg/redis"
)

const maxMetadataBytes = 1 << 20

// metadataCache is the slice of the redis client the resolver needs.
type metadataCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Resolver fetches pinned metadata documents through the public gateway.
// Resolution is best-effort by contract: any failure degrades to a zero
// document, never to an error.
type Resolver struct {
	httpClient *http.Client
	gatewayURL string
	cache      metadataCache
	cacheTTL   time.Duration
	logg       *logger.Logger
	metrics    *metrics.LicensingMetrics
}

type ResolverOptions struct {
	GatewayURL string
	Timeout    time.Duration
	Cache      metadataCache
	CacheTTL   time.Duration
	Logger     *logger.Logger
	Metrics    *metrics.LicensingMetrics
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if strings.TrimSpace(opts.GatewayURL) == "" {
		return nil, fmt.Errorf("gateway url required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: opts.Timeout},
		gatewayURL: strings.TrimRight(opts.GatewayURL, "/"),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logg:       opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

// Resolve fetches and parses the document behind a content identifier.
func (r *Resolver) Resolve(ctx context.Context, cid string) Metadata {
	if r == nil || strings.TrimSpace(cid) == "" {
		return Metadata{}
	}

	if doc, ok := r.fromCache(ctx, cid); ok {
		return doc
	}

	doc, err := r.fetch(ctx, cid)
	if err != nil {
		r.metrics.IncMetadataFetchFailure()
		if r.logg != nil {
			r.logg.Warn(r.logg.WithField(ctx, "content_ref", cid), "metadata fetch degraded to empty document")
		}
		return Metadata{}
	}

	r.store(ctx, cid, doc)
	return doc
}

// GatewayURL builds the public gateway URL for a content identifier.
func (r *Resolver) GatewayURL(cid string) string {
	if r == nil || cid == "" {
		return ""
	}
	return r.gatewayURL + "/" + cid
}

func (r *Resolver) fetch(ctx context.Context, cid string) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.gatewayURL+"/"+cid, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("building gateway request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return Metadata{}, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var doc Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&doc); err != nil {
		return Metadata{}, fmt.Errorf("decoding metadata document: %w", err)
	}
	return doc, nil
}

func (r *Resolver) fromCache(ctx context.Context, cid string) (Metadata, bool) {
	if r.cache == nil {
		return Metadata{}, false
	}
	raw, err := r.cache.Get(ctx, redis.MetadataKey(cid))
	if err != nil {
		if !redis.IsNil(err) && r.logg != nil {
			r.logg.Warn(ctx, "metadata cache read failed")
		}
		return Metadata{}, false
	}
	var doc Metadata
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Metadata{}, false
	}
	return doc, true
}

func (r *Resolver) store(ctx context.Context, cid string, doc Metadata) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, redis.MetadataKey(cid), string(raw), r.cacheTTL); err != nil && r.logg != nil {
		r.logg.Warn(ctx, "metadata cache write failed")
	}
}
