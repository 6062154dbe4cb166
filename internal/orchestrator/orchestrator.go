// Package orchestrator runs the wallet analysis pipeline.
// It coordinates: signatures → transactions → events → periods → ranking → metadata
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"degenjudge/internal/batch"
	"degenjudge/internal/domain"
	"degenjudge/internal/extraction"
	"degenjudge/internal/fetcher"
	"degenjudge/internal/logging"
	"degenjudge/internal/metadata"
	"degenjudge/internal/observability"
	"degenjudge/internal/periods"
	"degenjudge/internal/solana"
)

// Defaults for the pipeline.
const (
	DefaultTopN            = 20
	DefaultEnrichBatchSize = 8
	DefaultEnrichPause     = 800 * time.Millisecond
)

// TransactionSource loads a wallet's history.
type TransactionSource interface {
	FetchSignatures(ctx context.Context, address string, limit int) ([]domain.SignatureRecord, error)
	FetchTransactions(ctx context.Context, records []domain.SignatureRecord) ([]fetcher.FetchedTransaction, error)
}

// MetadataResolver resolves display metadata for a mint.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint string) (domain.TokenMetadata, error)
}

// Orchestrator coordinates one wallet analysis.
// Flow: fetch → extract → reconstruct → rank → enrich → filter
type Orchestrator struct {
	source    TransactionSource
	extractor *extraction.Extractor
	resolver  MetadataResolver
	metrics   *observability.Metrics
	log       *logrus.Entry

	signatureLimit int
	topN           int
	enrichBatch    batch.Options
	timeout        time.Duration
}

// Options for creating Orchestrator.
type Options struct {
	// Required collaborators
	Source   TransactionSource
	Resolver MetadataResolver

	// Optional collaborators
	Extractor *extraction.Extractor // defaults to extraction.New()
	Metrics   *observability.Metrics
	Logger    logrus.FieldLogger

	// Limits (zero means default)
	SignatureLimit int
	TopN           int
	EnrichBatch    batch.Options
	Timeout        time.Duration // bounds one AnalyzeWallet call; zero disables
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		source:         opts.Source,
		extractor:      opts.Extractor,
		resolver:       opts.Resolver,
		metrics:        opts.Metrics,
		log:            logging.Component(opts.Logger, "orchestrator"),
		signatureLimit: opts.SignatureLimit,
		topN:           opts.TopN,
		enrichBatch:    opts.EnrichBatch,
		timeout:        opts.Timeout,
	}
	if o.extractor == nil {
		o.extractor = extraction.New()
	}
	if o.signatureLimit <= 0 {
		o.signatureLimit = fetcher.DefaultSignatureLimit
	}
	if o.topN <= 0 {
		o.topN = DefaultTopN
	}
	if o.enrichBatch.Size <= 0 {
		o.enrichBatch = batch.Options{Size: DefaultEnrichBatchSize, Pause: DefaultEnrichPause}
	}
	return o
}

// AnalyzeWallet reconstructs the wallet's round trips for its most recent
// transactions and returns at most TopN trades, most profitable first.
// Per-transaction and per-mint metadata failures degrade silently; any
// other failure aborts with a single error.
func (o *Orchestrator) AnalyzeWallet(ctx context.Context, address string) ([]domain.TokenTrade, error) {
	start := time.Now()
	trades, err := o.analyze(ctx, address)
	o.metrics.RecordAnalysis(time.Since(start), len(trades), err)
	if err != nil {
		o.log.WithField("address", address).WithError(err).Error("analysis failed")
		return nil, fmt.Errorf("failed to analyze wallet: %w", err)
	}
	return trades, nil
}

func (o *Orchestrator) analyze(ctx context.Context, address string) ([]domain.TokenTrade, error) {
	if err := solana.ValidateAddress(address); err != nil {
		return nil, err
	}
	if !solana.IsOnCurve(address) {
		o.log.WithField("address", address).Warn("address is off-curve; it cannot sign swaps")
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log := o.log.WithField("address", address)

	// Phase 1: Signatures, oldest first
	log.Debug("Phase 1: Fetching signatures...")
	records, err := o.source.FetchSignatures(ctx, address, o.signatureLimit)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (signatures) failed: %w", err)
	}
	slices.Reverse(records)
	log.Debugf("  Found %d signatures", len(records))

	// Phase 2: Transactions
	log.Debug("Phase 2: Fetching transactions...")
	txs, err := o.source.FetchTransactions(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (transactions) failed: %w", err)
	}
	log.Debugf("  Fetched %d transactions", len(txs))

	// Phase 3: Events per mint
	streams, mints := o.collectEvents(txs, address)
	log.Debugf("Phase 3: Extracted events for %d mints", len(mints))

	// Phase 4: Periods per mint
	candidates := make([]domain.TokenTrade, 0, len(mints))
	for _, mint := range mints {
		if trade, ok := periods.BuildTrade(mint, streams[mint]); ok {
			candidates = append(candidates, trade)
		}
	}
	log.Debugf("Phase 4: %d mints with completed periods", len(candidates))

	// Phase 5: Rank
	rank(candidates)
	if len(candidates) > o.topN {
		candidates = candidates[:o.topN]
	}

	// Phase 6: Metadata
	log.Debug("Phase 6: Enriching metadata...")
	if err := o.enrich(ctx, candidates); err != nil {
		return nil, fmt.Errorf("phase 6 (metadata) failed: %w", err)
	}

	// Phase 7: Filter
	trades := make([]domain.TokenTrade, 0, len(candidates))
	for _, t := range candidates {
		if t.TotalBoughtSol.IsPositive() && len(t.Periods) > 0 && t.BestPeriod != nil {
			trades = append(trades, t)
		}
	}

	log.WithField("trades", len(trades)).Info("Analysis completed")
	return trades, nil
}

// collectEvents extracts events into per-mint streams. Mints are returned
// in first-seen order so later stages stay deterministic.
func (o *Orchestrator) collectEvents(txs []fetcher.FetchedTransaction, address string) (map[string][]domain.TransferEvent, []string) {
	streams := make(map[string][]domain.TransferEvent)
	var mints []string
	for _, ft := range txs {
		for _, ev := range o.extractor.Extract(ft.Tx, address, ft.Signature, ft.BlockTime) {
			if _, seen := streams[ev.Mint]; !seen {
				mints = append(mints, ev.Mint)
			}
			streams[ev.Mint] = append(streams[ev.Mint], ev)
		}
	}
	return streams, mints
}

// enrich fills display fields in place. Only cancellation of ctx itself is
// an error; a resolver error of any kind, context errors included, degrades
// that trade to fallback metadata.
func (o *Orchestrator) enrich(ctx context.Context, trades []domain.TokenTrade) error {
	outcomes := batch.Process(ctx, trades, o.enrichBatch, func(ctx context.Context, t domain.TokenTrade) (domain.TokenMetadata, error) {
		return o.resolver.Resolve(ctx, t.Mint)
	})

	for i, out := range outcomes {
		if out.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			o.log.WithField("mint", trades[i].Mint).WithError(out.Err).Warn("metadata unavailable")
			out.Value = metadata.Fallback(trades[i].Mint)
		}
		trades[i].Name = out.Value.Name
		trades[i].Symbol = out.Value.Symbol
		trades[i].Icon = out.Value.Icon
	}
	return nil
}

// rank orders trades by best-period profit, highest first, then by mint.
func rank(trades []domain.TokenTrade) {
	sort.SliceStable(trades, func(i, j int) bool {
		pi, pj := trades[i].Profit(), trades[j].Profit()
		if !pi.Equal(pj) {
			return pi.GreaterThan(pj)
		}
		return trades[i].Mint < trades[j].Mint
	})
}
