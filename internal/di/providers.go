package di

import (
	"context"
	"fmt"
	"time"

	"FinSim/internal/domain/repository"
	"FinSim/internal/handler/api"
	internalrepo "FinSim/internal/repository"
	"FinSim/internal/usecase"
	pkgcache "FinSim/pkg/cache"
	pkgch "FinSim/pkg/clickhouse"
	"FinSim/pkg/config"
	pkgkafka "FinSim/pkg/kafka"
	applogger "FinSim/pkg/logger"
	"FinSim/pkg/metrics"
	"FinSim/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS finsim",
		"CREATE TABLE IF NOT EXISTS finsim.candles_1s (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS finsim.candles_1m (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS finsim.candles_5m (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS finsim.candles_1h (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS finsim.candles_1d (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideScoreCache creates the objective memoization cache: layered with
// Redis when enabled, in-memory otherwise.
func ProvideScoreCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(10000)), nil
	}
	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("finsim"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(redis, pkgcache.WithLayeredMemorySize(10000)), nil
}

// ProvideSignalerRegistry creates the signal generator registry.
func ProvideSignalerRegistry() *usecase.SignalerRegistry {
	return usecase.NewSignalerRegistry()
}

// ProvideBarStore creates the ClickHouse bar source.
func ProvideBarStore(chClient *pkgch.Client) repository.BarStore {
	return internalrepo.NewCHBarStore(chClient)
}

func backtestDefaults(cfg *config.Config) usecase.BacktestDefaults {
	return usecase.BacktestDefaults{
		InitialCapital:  cfg.Backtest.InitialCapital,
		CommissionRate:  cfg.Backtest.CommissionRate,
		DataPercentage:  cfg.Backtest.DataPercentage,
		BankruptcyFloor: cfg.Backtest.BankruptcyFloor,
	}
}

// ProvideBacktestUseCase creates the backtest use case.
func ProvideBacktestUseCase(
	store repository.BarStore,
	registry *usecase.SignalerRegistry,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(store, registry, m, backtestDefaults(cfg))
}

// ProvideOptimizeUseCase creates the optimize use case with score caching.
func ProvideOptimizeUseCase(
	store repository.BarStore,
	registry *usecase.SignalerRegistry,
	m repository.Metrics,
	cache pkgcache.Service,
	cfg *config.Config,
) *usecase.OptimizeUseCase {
	uc := usecase.NewOptimizeUseCase(store, registry, m, backtestDefaults(cfg))
	uc.SetScoreCache(cache, cfg.Optimizer.ScoreCacheTTL)
	return uc
}

// ProvideTrialSinks builds the external reporting sinks: the Kafka trials
// topic plus an optional webhook.
func ProvideTrialSinks(producer *pkgkafka.Producer, cfg *config.Config) []repository.TrialSink {
	sinks := []repository.TrialSink{
		internalrepo.NewKafkaTrialSink(producer, cfg.Kafka.TrialsTopic),
	}
	if cfg.Optimizer.WebhookURL != "" {
		sinks = append(sinks, internalrepo.NewWebhookSink(cfg.Optimizer.WebhookURL, cfg.Optimizer.WebhookTimeout))
	}
	return sinks
}

// ProvideJobManager creates the async job manager.
func ProvideJobManager(uc *usecase.OptimizeUseCase, sinks []repository.TrialSink, cfg *config.Config) *usecase.JobManager {
	return usecase.NewJobManager(uc, cfg.Optimizer.MaxJobs, sinks...)
}

// ProvideKafkaJobsHandler registers the handler for the jobs topic.
func ProvideKafkaJobsHandler(jobs *usecase.JobManager, m repository.Metrics, cfg *config.Config) *usecase.KafkaJobsHandler {
	return usecase.NewKafkaJobsHandler(cfg.Kafka.JobsTopic, jobs, m)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// ProvideApp creates the application server with its HTTP handlers wired.
func ProvideApp(
	cfg *config.Config,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	jobsKH *usecase.KafkaJobsHandler,
	chClient *pkgch.Client,
	store repository.BarStore,
	backtest *usecase.BacktestUseCase,
	optimize *usecase.OptimizeUseCase,
	registry *usecase.SignalerRegistry,
	jobs *usecase.JobManager,
	sinks []repository.TrialSink,
) *server.App {
	app := server.New(cfg, consumer, jobsKH, chClient)
	app.SetRegistry(registry)

	l := app.Logger()
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.LoggingHook{L: l})
	}
	if producer != nil && cfg.Kafka.ErrorLogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.ErrorLogsTopic,
			Publisher:      producer,
		})
		app.AddCloser(closerFunc(func() error {
			l.RemoveCollector()
			return nil
		}))
	}
	backtest.SetLogger(l)
	optimize.SetLogger(l)
	jobs.SetLogger(l)
	if chStore, ok := store.(*internalrepo.CHBarStore); ok {
		chStore.SetLogger(l)
	}

	app.AddHandler(api.NewBacktestHandler(l, backtest, registry))
	app.AddHandler(api.NewOptimizeHandler(l, jobs))

	for _, s := range sinks {
		if c, ok := s.(*internalrepo.KafkaTrialSink); ok {
			c.SetLogger(l)
			app.AddCloser(c)
		}
		if w, ok := s.(*internalrepo.WebhookSink); ok {
			w.SetLogger(l)
		}
	}

	return app
}
