// Package fetcher retrieves a wallet's recent signatures and transactions
// through the shared request queue.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"degenjudge/internal/batch"
	"degenjudge/internal/domain"
	"degenjudge/internal/logging"
	"degenjudge/internal/queue"
	"degenjudge/internal/retry"
	"degenjudge/internal/solana"
)

// Defaults for transaction retrieval.
const (
	DefaultSignatureLimit = 75
	DefaultBatchSize      = 8
	DefaultBatchPause     = 800 * time.Millisecond
)

// DefaultTransactionRetry is applied around every getTransaction call.
var DefaultTransactionRetry = retry.Policy{
	MaxAttempts:  3,
	InitialDelay: 800 * time.Millisecond,
	Multiplier:   1.5,
}

// FetchedTransaction is a transaction paired with the record it came from.
type FetchedTransaction struct {
	Signature string
	BlockTime int64
	Tx        *solana.Transaction
}

// Fetcher loads signatures and transactions for a wallet.
type Fetcher struct {
	rpc   solana.RPCClient
	queue *queue.Queue
	retry retry.Policy
	batch batch.Options
	log   *logrus.Entry

	onDrop func(signature string, err error)
}

// Option configures Fetcher.
type Option func(*Fetcher)

// WithRetryPolicy overrides the getTransaction retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(f *Fetcher) {
		f.retry = p
	}
}

// WithBatch sets batch size and inter-batch pause.
func WithBatch(size int, pause time.Duration) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.batch.Size = size
		}
		if pause >= 0 {
			f.batch.Pause = pause
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Fetcher) {
		f.log = logging.Component(log, "fetcher")
	}
}

// WithDropHook is called for every transaction dropped after its retries.
func WithDropHook(fn func(signature string, err error)) Option {
	return func(f *Fetcher) {
		f.onDrop = fn
	}
}

// New creates a Fetcher. Every RPC call goes through q.
func New(rpc solana.RPCClient, q *queue.Queue, opts ...Option) *Fetcher {
	f := &Fetcher{
		rpc:   rpc,
		queue: q,
		retry: DefaultTransactionRetry,
		batch: batch.Options{Size: DefaultBatchSize, Pause: DefaultBatchPause},
		log:   logging.Component(nil, "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchSignatures returns up to limit signatures for address, newest first.
func (f *Fetcher) FetchSignatures(ctx context.Context, address string, limit int) ([]domain.SignatureRecord, error) {
	if limit <= 0 {
		limit = DefaultSignatureLimit
	}

	infos, err := queue.Do(ctx, f.queue, func(ctx context.Context) ([]solana.SignatureInfo, error) {
		return f.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	})
	if err != nil {
		return nil, fmt.Errorf("fetch signatures: %w", err)
	}

	records := make([]domain.SignatureRecord, len(infos))
	for i, info := range infos {
		records[i] = domain.SignatureRecord{
			Signature: info.Signature,
			BlockTime: info.BlockTime,
		}
	}
	return records, nil
}

// FetchTransaction loads one transaction with retry. It returns nil, nil
// when the node has no record of the signature.
func (f *Fetcher) FetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	policy := f.retry
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			f.log.WithFields(logrus.Fields{
				"signature": signature,
				"attempt":   attempt + 1,
				"delay":     delay,
			}).WithError(err).Debug("retrying getTransaction")
		}
	}

	return retry.Do(ctx, policy, func(ctx context.Context) (*solana.Transaction, error) {
		return queue.Do(ctx, f.queue, func(ctx context.Context) (*solana.Transaction, error) {
			return f.rpc.GetTransaction(ctx, signature)
		})
	})
}

// FetchTransactions loads the transactions for records, in input order.
// Records without a signature or a non-zero block time are skipped. Transactions that
// fail after retries or are unknown to the node are dropped. Only context
// cancellation is returned as an error.
func (f *Fetcher) FetchTransactions(ctx context.Context, records []domain.SignatureRecord) ([]FetchedTransaction, error) {
	valid := make([]domain.SignatureRecord, 0, len(records))
	for _, r := range records {
		if r.Signature == "" || r.BlockTime == nil || *r.BlockTime == 0 {
			continue
		}
		valid = append(valid, r)
	}

	outcomes := batch.Process(ctx, valid, f.batch, func(ctx context.Context, r domain.SignatureRecord) (*solana.Transaction, error) {
		return f.FetchTransaction(ctx, r.Signature)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]FetchedTransaction, 0, len(valid))
	for i, o := range outcomes {
		sig := valid[i].Signature
		if o.Err != nil {
			f.log.WithField("signature", sig).WithError(o.Err).Warn("dropping transaction")
			if f.onDrop != nil {
				f.onDrop(sig, o.Err)
			}
			continue
		}
		if o.Value == nil {
			f.log.WithField("signature", sig).Debug("transaction not found")
			continue
		}
		out = append(out, FetchedTransaction{
			Signature: sig,
			BlockTime: *valid[i].BlockTime,
			Tx:        o.Value,
		})
	}

	f.log.WithFields(logrus.Fields{
		"requested": len(records),
		"fetched":   len(out),
	}).Debug("transactions fetched")

	return out, nil
}
