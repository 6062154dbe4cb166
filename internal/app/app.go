// Package app wires the analyzer components from a Config.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"degenjudge/internal/batch"
	"degenjudge/internal/config"
	"degenjudge/internal/fetcher"
	"degenjudge/internal/metadata"
	"degenjudge/internal/observability"
	"degenjudge/internal/orchestrator"
	"degenjudge/internal/queue"
	"degenjudge/internal/solana"
	"degenjudge/internal/storage"
	"degenjudge/internal/storage/memory"
	pgstore "degenjudge/internal/storage/postgres"
	redisstore "degenjudge/internal/storage/redis"
	"degenjudge/internal/verdict"
)

// App holds the wired components. Close releases the queue and the
// metadata store connection.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Judge        verdict.Generator // nil without an OpenAI key
	Metrics      *observability.Metrics
	Queue        *queue.Queue

	cleanup []func()
}

// Options configures New.
type Options struct {
	// RPCClient replaces the HTTP client built from cfg.RPC.
	RPCClient solana.RPCClient
	// Registerer receives the metrics; nil uses a private registry.
	Registerer prometheus.Registerer
	Logger     logrus.FieldLogger
}

// New builds the pipeline described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	a := &App{Metrics: observability.NewMetrics("", reg)}

	rpc := opts.RPCClient
	if rpc == nil {
		endpoint, err := solana.BuildEndpoint(cfg.RPC.Endpoint, cfg.RPC.APIKey)
		if err != nil {
			return nil, err
		}
		rpc = solana.NewHTTPClient(endpoint,
			solana.WithTimeout(cfg.RPC.Timeout),
			solana.WithObserver(a.Metrics.ObserveRPC),
		)
	}

	a.Queue = queue.New(
		queue.WithMaxConcurrent(cfg.Queue.MaxConcurrent),
		queue.WithMinDelay(cfg.Queue.MinDelay),
	)
	a.cleanup = append(a.cleanup, a.Queue.Close)
	a.Metrics.RegisterQueueGauge(func() int { return a.Queue.Stats().Active })

	store, err := a.openStore(ctx, cfg.Metadata, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	enricher := metadata.NewEnricher(rpc, a.Queue, store,
		metadata.WithRetryPolicy(cfg.Retry.Metadata.Policy()),
		metadata.WithLogger(log),
		metadata.WithMetrics(a.Metrics),
	)

	source := fetcher.New(rpc, a.Queue,
		fetcher.WithRetryPolicy(cfg.Retry.Transaction.Policy()),
		fetcher.WithBatch(cfg.Analysis.BatchSize, cfg.Analysis.BatchPause),
		fetcher.WithLogger(log),
		fetcher.WithDropHook(func(string, error) { a.Metrics.RecordDroppedTransaction() }),
	)

	a.Orchestrator = orchestrator.New(orchestrator.Options{
		Source:         source,
		Resolver:       enricher,
		Metrics:        a.Metrics,
		Logger:         log,
		SignatureLimit: cfg.Analysis.SignatureLimit,
		TopN:           cfg.Analysis.TopN,
		EnrichBatch:    batch.Options{Size: cfg.Analysis.BatchSize, Pause: cfg.Analysis.BatchPause},
		Timeout:        cfg.Analysis.Timeout,
	})

	if cfg.OpenAI.APIKey != "" {
		a.Judge = verdict.NewOpenAIGenerator(cfg.OpenAI.APIKey,
			verdict.WithModel(cfg.OpenAI.Model),
			verdict.WithBaseURL(cfg.OpenAI.BaseURL),
			verdict.WithLogger(log),
		)
	} else {
		log.WithField("component", "app").Info("OPENAI_API_KEY not set; verdicts disabled")
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.MetadataConfig, log logrus.FieldLogger) (storage.TokenMetadataStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.WithMaxConns(4))
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, pool.Close)
		if err := pool.Migrate(ctx); err != nil {
			return nil, err
		}
		log.WithField("component", "app").Info("metadata cache: postgres")
		return pgstore.NewTokenMetadataStore(pool), nil

	case config.StoreRedis:
		client, err := redisstore.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, func() { _ = client.Close() })
		log.WithField("component", "app").Info("metadata cache: redis")
		return redisstore.NewTokenMetadataStore(client, redisstore.WithTTL(cfg.RedisTTL)), nil

	default:
		return memory.NewTokenMetadataStore(), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
