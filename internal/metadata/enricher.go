// Package metadata resolves display metadata (name, symbol, icon) for mints
// through a shared cache.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"degenjudge/internal/domain"
	"degenjudge/internal/logging"
	"degenjudge/internal/observability"
	"degenjudge/internal/queue"
	"degenjudge/internal/retry"
	"degenjudge/internal/solana"
	"degenjudge/internal/storage"
)

// FallbackSymbol is used when an asset has no symbol.
const FallbackSymbol = "UNKNOWN"

// DefaultRetry is applied around every getAsset call.
var DefaultRetry = retry.Policy{
	MaxAttempts:  3,
	InitialDelay: 1500 * time.Millisecond,
	Multiplier:   1.5,
}

// DefaultLookupTimeout bounds one shared lookup, retries included.
const DefaultLookupTimeout = 30 * time.Second

// errNoDisplayFields marks an asset carrying neither name nor symbol.
var errNoDisplayFields = errors.New("asset has no name or symbol")

// Enricher resolves TokenMetadata, caching every answer by mint.
type Enricher struct {
	rpc     solana.RPCClient
	queue   *queue.Queue
	store   storage.TokenMetadataStore
	retry   retry.Policy
	timeout time.Duration
	log     *logrus.Entry
	metrics *observability.Metrics
	now     func() time.Time

	inflight singleflight.Group
}

// Option configures Enricher.
type Option func(*Enricher)

// WithRetryPolicy overrides DefaultRetry.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Enricher) {
		e.retry = p
	}
}

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Enricher) {
		e.log = logging.Component(log, "metadata")
	}
}

// WithMetrics records cache hits, misses and fallbacks.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Enricher) {
		e.metrics = m
	}
}

// WithClock overrides the FetchedAt clock.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		e.now = now
	}
}

// NewEnricher creates an Enricher. Every lookup goes through q and every
// result, fallbacks included, is written to store.
func NewEnricher(rpc solana.RPCClient, q *queue.Queue, store storage.TokenMetadataStore, opts ...Option) *Enricher {
	e := &Enricher{
		rpc:     rpc,
		queue:   q,
		store:   store,
		retry:   DefaultRetry,
		timeout: DefaultLookupTimeout,
		log:     logging.Component(nil, "metadata"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns metadata for mint. Lookup failures produce a cached
// fallback entry. An error is returned when ctx ends first or when the
// shared lookup runs past its timeout.
//
// Concurrent callers for one mint share a single lookup. That lookup is
// detached from every caller's cancellation, so a caller leaving early
// never fails the others.
func (e *Enricher) Resolve(ctx context.Context, mint string) (domain.TokenMetadata, error) {
	if m, ok := e.cached(ctx, mint); ok {
		e.metrics.RecordMetadataLookup(observability.LookupHit)
		return m, nil
	}

	ch := e.inflight.DoChan(mint, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		return e.lookup(lctx, mint)
	})

	select {
	case <-ctx.Done():
		return domain.TokenMetadata{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.TokenMetadata{}, res.Err
		}
		return res.Val.(domain.TokenMetadata), nil
	}
}

func (e *Enricher) cached(ctx context.Context, mint string) (domain.TokenMetadata, bool) {
	m, err := e.store.GetByMint(ctx, mint)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.log.WithField("mint", mint).WithError(err).Warn("metadata cache read failed")
		}
		return domain.TokenMetadata{}, false
	}
	return *m, true
}

func (e *Enricher) lookup(ctx context.Context, mint string) (domain.TokenMetadata, error) {
	// A concurrent caller may have filled the cache while this one waited.
	if m, ok := e.cached(ctx, mint); ok {
		e.metrics.RecordMetadataLookup(observability.LookupHit)
		return m, nil
	}

	policy := e.retry
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			e.log.WithFields(logrus.Fields{
				"mint":    mint,
				"attempt": attempt + 1,
				"delay":   delay,
			}).WithError(err).Debug("retrying getAsset")
		}
	}

	m, err := retry.Do(ctx, policy, func(ctx context.Context) (domain.TokenMetadata, error) {
		asset, err := queue.Do(ctx, e.queue, func(ctx context.Context) (*solana.Asset, error) {
			return e.rpc.GetAsset(ctx, mint)
		})
		if err != nil {
			return domain.TokenMetadata{}, err
		}
		return FromAsset(mint, asset)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Not cached: the next caller gets a fresh attempt.
			return domain.TokenMetadata{}, fmt.Errorf("metadata lookup %s: %w", mint, ctxErr)
		}
		e.log.WithField("mint", mint).WithError(err).Warn("metadata lookup failed, using fallback")
		e.metrics.RecordMetadataLookup(observability.LookupFallback)
		m = Fallback(mint)
	} else {
		e.metrics.RecordMetadataLookup(observability.LookupMiss)
	}
	m.FetchedAt = e.now().UnixMilli()

	return e.save(ctx, m), nil
}

// save stores m and returns the entry the cache holds afterwards.
func (e *Enricher) save(ctx context.Context, m domain.TokenMetadata) domain.TokenMetadata {
	err := e.store.Insert(ctx, &m)
	switch {
	case err == nil:
		return m
	case errors.Is(err, storage.ErrDuplicateKey):
		if winner, ok := e.cached(ctx, m.Mint); ok {
			return winner
		}
		return m
	default:
		e.log.WithField("mint", m.Mint).WithError(err).Warn("metadata cache write failed")
		return m
	}
}

// FromAsset extracts display metadata from a DAS asset. It fails when the
// asset carries neither a name nor a symbol.
func FromAsset(mint string, asset *solana.Asset) (domain.TokenMetadata, error) {
	if asset == nil {
		return domain.TokenMetadata{}, fmt.Errorf("%s: %w", mint, errNoDisplayFields)
	}

	var tokenName, tokenSymbol, metaName, metaSymbol string
	if asset.TokenInfo != nil {
		tokenName, tokenSymbol = asset.TokenInfo.Name, asset.TokenInfo.Symbol
	}
	if asset.Content != nil && asset.Content.Metadata != nil {
		metaName, metaSymbol = asset.Content.Metadata.Name, asset.Content.Metadata.Symbol
	}

	name := firstNonEmpty(tokenName, metaName, asset.Name)
	symbol := firstNonEmpty(tokenSymbol, metaSymbol, asset.Symbol)
	if name == "" && symbol == "" {
		return domain.TokenMetadata{}, fmt.Errorf("%s: %w", mint, errNoDisplayFields)
	}

	return domain.TokenMetadata{
		Mint:   mint,
		Name:   firstNonEmpty(name, FallbackName(mint)),
		Symbol: firstNonEmpty(symbol, FallbackSymbol),
		Icon:   ResolveIcon(asset),
	}, nil
}

// FallbackName is the display name of a mint without metadata.
func FallbackName(mint string) string {
	return "Token " + solana.ShortAddress(mint)
}

// Fallback is the entry cached when every lookup attempt failed.
func Fallback(mint string) domain.TokenMetadata {
	return domain.TokenMetadata{
		Mint:     mint,
		Name:     FallbackName(mint),
		Symbol:   FallbackSymbol,
		Icon:     PlaceholderIcon,
		Fallback: true,
	}
}
