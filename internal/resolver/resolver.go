package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/apex/log"

	"github.com/sannux/pixelguard/internal/cache"
	"github.com/sannux/pixelguard/internal/metrics"
	"github.com/sannux/pixelguard/internal/models"
	"github.com/sannux/pixelguard/internal/ratelimit"
)

// redirectStatuses are the only statuses followed; everything else ends the
// chain.
var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds resolver settings.
type Config struct {
	MaxHops    int
	HopTimeout time.Duration
	UserAgent  string
	CacheTTL   time.Duration
}

// Resolver expands shortened/redirecting URLs into a redirect chain using
// header-only requests. It never fetches response bodies, so destination
// content is never rendered or executed.
type Resolver struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	cache     cache.Cache
	maxHops   int
	userAgent string
	cacheTTL  time.Duration
	logger    log.Interface
}

type resolvedEntry struct {
	FinalURL string   `json:"final_url"`
	Chain    []string `json:"chain"`
}

// New creates a resolver. The limiter paces hops per host; the cache (may be
// nil) short-circuits repeated lookups of the same starting URL.
func New(cfg Config, limiter *ratelimit.Limiter, c cache.Cache, logger log.Interface) *Resolver {
	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = 5
	}
	hopTimeout := cfg.HopTimeout
	if hopTimeout <= 0 {
		hopTimeout = 5 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	client := &http.Client{
		Timeout: hopTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// redirects are followed manually, one hop at a time
			return http.ErrUseLastResponse
		},
	}

	return &Resolver{
		client:    client,
		limiter:   limiter,
		cache:     c,
		maxHops:   maxHops,
		userAgent: userAgent,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// MaxHops returns the configured hop bound.
func (r *Resolver) MaxHops() int {
	return r.maxHops
}

// Resolve follows HTTP redirects from rawURL for at most MaxHops hops. It
// returns the final URL and the ordered chain of visited URLs, the first
// element being rawURL itself. A missing Location header on a redirect
// status is treated as a malformed chain and returned as-is without error.
// On network failure the chain built so far is returned together with a
// descriptive error; callers must treat that error as a high-risk signal.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, models.RedirectChain, error) {
	if entry, ok := r.cachedEntry(rawURL); ok {
		return entry.FinalURL, models.RedirectChain(entry.Chain), nil
	}

	chain := models.RedirectChain{}
	current := rawURL

	for hop := 0; hop < r.maxHops; hop++ {
		chain = append(chain, current)

		currentURL, err := url.Parse(current)
		if err != nil {
			return "", chain, fmt.Errorf("parse hop %d url %q: %w", hop, current, err)
		}
		if r.limiter != nil {
			r.limiter.Wait(currentURL.Hostname())
		}

		resp, err := r.head(ctx, current)
		if err != nil {
			return "", chain, fmt.Errorf("resolve %q at hop %d: %w", rawURL, hop, err)
		}
		resp.Body.Close()

		if !redirectStatuses[resp.StatusCode] {
			metrics.ResolverHops.Observe(float64(len(chain)))
			r.store(rawURL, current, chain)
			return current, chain, nil
		}

		location := resp.Header.Get("Location")
		if location == "" {
			// malformed redirect, chain ends here
			return current, chain, nil
		}

		next, err := url.Parse(location)
		if err != nil {
			return current, chain, nil
		}
		current = currentURL.ResolveReference(next).String()
	}

	r.logger.WithFields(log.Fields{
		"url":  rawURL,
		"hops": len(chain),
	}).Debug("redirect hop limit reached")
	metrics.ResolverHops.Observe(float64(len(chain)))

	return current, chain, nil
}

func (r *Resolver) head(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	return r.client.Do(req)
}

func (r *Resolver) cachedEntry(rawURL string) (*resolvedEntry, bool) {
	if r.cache == nil {
		return nil, false
	}
	value, ok := r.cache.Get(cacheKey(rawURL))
	if !ok {
		return nil, false
	}

	switch v := value.(type) {
	case *resolvedEntry:
		return v, true
	default:
		// redis round-trips values through JSON
		data, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}
		var entry resolvedEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.FinalURL == "" {
			return nil, false
		}
		return &entry, true
	}
}

func (r *Resolver) store(rawURL, finalURL string, chain models.RedirectChain) {
	if r.cache == nil {
		return
	}
	r.cache.SetWithTTL(cacheKey(rawURL), &resolvedEntry{
		FinalURL: finalURL,
		Chain:    chain,
	}, r.cacheTTL)
}

func cacheKey(rawURL string) string {
	return "resolve:" + rawURL
}
