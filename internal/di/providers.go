package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	domsvc "PriceSignal/internal/domain/service"
	"PriceSignal/internal/handler/api"
	internalrepo "PriceSignal/internal/repository"
	"PriceSignal/internal/service/hub"
	"PriceSignal/internal/service/pricefeed"
	"PriceSignal/internal/service/ratelimit"
	"PriceSignal/internal/services/classifier"
	"PriceSignal/internal/services/sequence"
	"PriceSignal/internal/usecase"
	"PriceSignal/pkg/cache"
	pkgch "PriceSignal/pkg/clickhouse"
	"PriceSignal/pkg/config"
	xhttp "PriceSignal/pkg/http"
	pkgkafka "PriceSignal/pkg/kafka"
	"PriceSignal/pkg/logger"
	"PriceSignal/pkg/metrics"
	"PriceSignal/pkg/queue"
	"PriceSignal/pkg/server"
)

const (
	cacheMemorySize = 1000
	initTimeout     = 10 * time.Second
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideRedisCache connects to Redis. Returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, cfg.Redis.Timeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache layers memory over Redis when Redis is enabled.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc != nil {
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cacheMemorySize),
			cache.WithLayeredMemoryTTL(cfg.Provider.SignalTTL),
		)
	}
	return cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cacheMemorySize),
		cache.WithMemoryCleanup(time.Minute),
	)
}

// ProvideClickHouseClient creates a ClickHouse client. Returns nil when
// ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}
	return client, nil
}

// ProvideObservationStore creates the observations table. Returns nil
// without a ClickHouse client.
func ProvideObservationStore(ch *pkgch.Client, l *logger.Logger) (*internalrepo.CHObservationStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHObservationStore(ch)
	store.SetLogger(l.With(logger.String("component", "clickhouse")))

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideHistorySource exposes the observation store to retraining.
func ProvideHistorySource(store *internalrepo.CHObservationStore) domrepo.HistorySource {
	if store == nil {
		return nil
	}
	return store
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreateTopics),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the observations consumer. Returns nil unless
// both Kafka and ClickHouse are enabled.
func ProvideKafkaConsumer(cfg *config.Config, store *internalrepo.CHObservationStore, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || store == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l.With(logger.String("component", "kafka_consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMessageHandlers lists the topic handlers for the consumer.
func ProvideMessageHandlers(cfg *config.Config, store *internalrepo.CHObservationStore, m domrepo.Metrics) []pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled || store == nil {
		return nil
	}
	return []pkgkafka.MessageHandler{
		usecase.NewObservationsHandler(cfg.Kafka.ObservationsTopic, store, m),
	}
}

// ProvideArtifactStore selects where the trained artifact lives.
func ProvideArtifactStore(cfg *config.Config, rc *cache.RedisCache) (domrepo.ArtifactStore, error) {
	switch cfg.Artifact.Backend {
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("artifact backend redis requires redis.enabled")
		}
		return internalrepo.NewRedisArtifactStore(rc, cfg.Artifact.RedisKey), nil
	default:
		return internalrepo.NewFileArtifactStore(cfg.Artifact.Path), nil
	}
}

// ProvideTrainerOptions maps the model section onto training options.
func ProvideTrainerOptions(cfg *config.Config) usecase.TrainerOptions {
	m := cfg.Model
	model := classifier.DefaultConfig()
	model.SequenceLength = m.SequenceLength
	model.Hidden = m.Hidden
	model.Dropout = m.Dropout
	model.LearningRate = m.LearningRate
	model.Seed = m.Seed

	train := classifier.DefaultTrainOptions()
	train.Epochs = m.Epochs
	train.BatchSize = m.BatchSize
	train.ValidationFraction = m.ValidationFraction

	return usecase.TrainerOptions{
		Sequence: sequence.Config{Length: m.SequenceLength, Horizon: m.Horizon, Threshold: m.Threshold},
		Model:    model,
		Train:    train,
	}
}

func ProvidePredictor(store domrepo.ArtifactStore, m domrepo.Metrics, l *logger.Logger) *usecase.Predictor {
	return usecase.NewPredictor(store, m, l.With(logger.String("component", "predictor")))
}

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Provider.Timeout))
}

func ProvidePriceProvider(cfg *config.Config, hc *xhttp.Client, l *logger.Logger) domsvc.PriceProvider {
	return pricefeed.NewClient(cfg.Provider.BaseURL, hc, l.With(logger.String("component", "pricefeed")))
}

func ProvideTokenCatalog(cfg *config.Config, hc *xhttp.Client, c cache.Service, l *logger.Logger) domsvc.TokenCatalog {
	return pricefeed.NewCatalog(cfg.Provider.CatalogURL, hc, c, cfg.Provider.CatalogTTL, l.With(logger.String("component", "catalog")))
}

func ProvideSignalService(
	cfg *config.Config,
	catalog domsvc.TokenCatalog,
	prices domsvc.PriceProvider,
	predictor *usecase.Predictor,
	c cache.Service,
	l *logger.Logger,
) *usecase.SignalService {
	return usecase.NewSignalService(catalog, prices, predictor, c, cfg.Provider.SignalTTL, l.With(logger.String("component", "signals")))
}

func ProvideHub(l *logger.Logger) *hub.Hub {
	return hub.New(l.With(logger.String("component", "ws_hub")))
}

// ProvideSignalPublishers fans loop output to websocket clients and, when
// enabled, to Kafka.
func ProvideSignalPublishers(cfg *config.Config, h *hub.Hub, producer *pkgkafka.Producer) []domrepo.SignalPublisher {
	pubs := []domrepo.SignalPublisher{h}
	if producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic))
	}
	return pubs
}

// ProvideSignalLoop returns nil when the loop is disabled or has no watches.
func ProvideSignalLoop(
	cfg *config.Config,
	svc *usecase.SignalService,
	pubs []domrepo.SignalPublisher,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.SignalLoop {
	if !cfg.Signals.Enabled || len(cfg.Signals.Watches) == 0 {
		return nil
	}
	watches := make([]usecase.Watch, 0, len(cfg.Signals.Watches))
	for _, w := range cfg.Signals.Watches {
		watches = append(watches, usecase.Watch{Symbol: w.Symbol, Interval: models.NormalizeInterval(w.Interval)})
	}
	return usecase.NewSignalLoop(svc, watches, cfg.Signals.Interval, pubs, m, l.With(logger.String("component", "signal_loop")))
}

func ProvideRetrainJob(
	cfg *config.Config,
	opts usecase.TrainerOptions,
	store domrepo.ArtifactStore,
	history domrepo.HistorySource,
	predictor *usecase.Predictor,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.RetrainJob {
	return usecase.NewRetrainJob(opts, store, history, predictor, m, l.With(logger.String("component", "retrain"))).
		WithDataDir(cfg.Model.DataDir)
}

// ProvideQueue creates the Redis job queue. Returns nil without Redis.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, l *logger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l.With(logger.String("component", "queue")), &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix))
}

// ProvideRetrainDispatcher queues retrains through Redis when available and
// runs them in-process otherwise.
func ProvideRetrainDispatcher(q *queue.RedisQueue, job *usecase.RetrainJob, l *logger.Logger) usecase.RetrainDispatcher {
	if q != nil {
		return usecase.NewQueueDispatcher(q)
	}
	return usecase.NewLocalDispatcher(job, l)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHandlers builds every HTTP route group.
func ProvideHandlers(
	cfg *config.Config,
	l *logger.Logger,
	predictor *usecase.Predictor,
	svc *usecase.SignalService,
	catalog domsvc.TokenCatalog,
	dispatcher usecase.RetrainDispatcher,
	store domrepo.ArtifactStore,
	h *hub.Hub,
	limiter *ratelimit.Limiter,
	obs *internalrepo.CHObservationStore,
	rc *cache.RedisCache,
) []xhttp.Handler {
	hl := l.With(logger.String("component", "http"))

	signals := api.NewSignalsEchoHandler(hl, predictor, svc, catalog)
	if limiter != nil {
		signals = signals.WithRateLimit(limiter.Middleware())
	}

	model := api.NewModelEchoHandler(hl, predictor, dispatcher, store.Location()).WithDataDir(cfg.Model.DataDir)
	if obs != nil {
		model.AddCheck("clickhouse", obs.Health)
	}
	if rc != nil {
		model.AddCheck("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		})
	}

	return []xhttp.Handler{signals, model, api.NewWSHandler(h)}
}

func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, l *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With(logger.String("component", "http"))),
	)
}

// ProvideApp assembles the long-running components.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	predictor *usecase.Predictor,
	loop *usecase.SignalLoop,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	q *queue.RedisQueue,
	job *usecase.RetrainJob,
	pubs []domrepo.SignalPublisher,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	comp := server.Components{
		HTTP:       srv,
		Predictor:  predictor,
		Loop:       loop,
		Consumer:   consumer,
		Handlers:   handlers,
		Queue:      q,
		Jobs:       []queue.Job{job},
		Publishers: pubs,
	}
	if ch != nil {
		comp.Closers = append(comp.Closers, ch)
	}
	if closer, ok := c.(io.Closer); ok {
		comp.Closers = append(comp.Closers, closer)
	}
	return server.New(cfg, l, comp)
}
