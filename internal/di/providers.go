package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"OptionWatch/internal/domain/models"
	"OptionWatch/internal/domain/repository"
	dsvc "OptionWatch/internal/domain/service"
	"OptionWatch/internal/handler/api"
	"OptionWatch/internal/handler/ws"
	mid "OptionWatch/internal/middleware"
	internalrepo "OptionWatch/internal/repository"
	icache "OptionWatch/internal/service/cache"
	"OptionWatch/internal/service/decision"
	"OptionWatch/internal/service/ratelimit"
	"OptionWatch/internal/service/yahoo"
	"OptionWatch/internal/signal/liveness"
	"OptionWatch/internal/signal/phase"
	"OptionWatch/internal/signal/structure"
	"OptionWatch/internal/usecase"
	pkgcache "OptionWatch/pkg/cache"
	pkgch "OptionWatch/pkg/clickhouse"
	"OptionWatch/pkg/config"
	xhttp "OptionWatch/pkg/http"
	pkgkafka "OptionWatch/pkg/kafka"
	applogger "OptionWatch/pkg/logger"
	"OptionWatch/pkg/metrics"
	"OptionWatch/pkg/server"

	"github.com/labstack/echo/v4"
)

// ProvideLogger creates the process logger. Production environments log JSON.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePhaseGate builds the phase gate with configured threshold overrides.
func ProvidePhaseGate(cfg *config.Config) (*phase.Gate, error) {
	overrides := make(map[models.MarketPhase]models.Thresholds, len(cfg.Market.Thresholds))
	for name, t := range cfg.Market.Thresholds {
		overrides[models.MarketPhase(name)] = models.Thresholds{
			StockMove:   t.StockMove,
			SpreadLimit: t.SpreadLimit,
			Strict:      t.Strict,
		}
	}
	return phase.NewGate(overrides)
}

// ProvideStructureGate builds the structural gate.
func ProvideStructureGate() *structure.Gate { return structure.NewGate() }

// ProvideRadar builds the process-wide liveness radar.
func ProvideRadar() *liveness.Radar { return liveness.NewRadar() }

// ProvideBytesCache picks the provider byte cache: Redis when enabled,
// in-process TTL cache otherwise.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideCacheService builds the layered report cache, or nil when Redis is
// not configured.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled || cfg.Redis.Addr == "" {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideMarketData builds the quote/bars/chain provider.
func ProvideMarketData(cfg *config.Config, bc icache.BytesCache) repository.MarketData {
	timeout := cfg.Provider.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return yahoo.New(
		xhttp.NewClient(xhttp.WithTimeout(timeout)),
		bc,
		ratelimit.New(),
		yahoo.WithBaseURL(cfg.Provider.BaseURL),
		yahoo.WithRate(cfg.Provider.RatePerSec, cfg.Provider.Burst),
		yahoo.WithTTLs(cfg.Provider.PriceTTL, cfg.Provider.BarsTTL, cfg.Provider.ChainTTL),
	)
}

// ProvideDecisionProvider builds the structural verdict source.
func ProvideDecisionProvider(cfg *config.Config, log *applogger.Logger) dsvc.DecisionProvider {
	if cfg.Decision.Mode == "http" {
		return decision.NewHTTP(cfg.Decision.URL, cfg.Decision.Timeout, log)
	}
	return decision.NewStatic(cfg.Decision.Static)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when no host
// is configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
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
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideStorage creates observation storage over ClickHouse, or nil when
// ClickHouse is not configured.
func ProvideStorage(chClient *pkgch.Client, cfg *config.Config) (repository.Storage, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".quote_observations")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when the sink publishes to
// Kafka, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Sink.Backend != "kafka" {
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
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the Kafka observation publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates the consumer that persists observations from
// the Kafka sink into ClickHouse. Only runs when both sides are configured.
func ProvideKafkaConsumer(cfg *config.Config, store repository.Storage) (*pkgkafka.Consumer, error) {
	if cfg.Sink.Backend != "kafka" || store == nil {
		return nil, nil
	}
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

// ProvideObservationsHandler registers the handler for the observations topic.
func ProvideObservationsHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if store == nil {
		return nil
	}
	return usecase.NewObservationsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideProcessor creates the observation sink processor.
func ProvideProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(
		pub,
		store,
		m,
		cfg.Sink.Backend,
		cfg.Sink.BatchSize,
		cfg.Sink.BatchTimeout,
	)
}

// ProvidePipeline wraps the processor with validation, throttling, and buffering.
func ProvidePipeline(proc *usecase.ObservationProcessor, m repository.Metrics, cfg *config.Config) *mid.ObservationPipeline {
	opts := []mid.PipelineOption{mid.WithBufferSize(2000)}
	if cfg.Sink.Throttle > 0 {
		opts = append(opts, mid.WithThrottle(cfg.Sink.Throttle))
	}
	return mid.NewObservationPipeline(proc, m, opts...)
}

// ProvideEvaluator creates the per-symbol evaluator.
func ProvideEvaluator(
	market repository.MarketData,
	stock *structure.Gate,
	radar *liveness.Radar,
	pipeline *mid.ObservationPipeline,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Evaluator {
	return usecase.NewEvaluator(
		market,
		stock,
		radar,
		pipeline,
		m,
		log,
		repository.NormalizeInterval(cfg.Scanner.BarSize),
		cfg.Scanner.BarRange,
	)
}

// ProvideScanner creates the watchlist scanner.
func ProvideScanner(
	eval *usecase.Evaluator,
	phaseGate *phase.Gate,
	decisions dsvc.DecisionProvider,
	cache pkgcache.Service,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Scanner {
	return usecase.NewScanner(eval, phaseGate, decisions, cache, log, cfg.Scanner.Symbols, cfg.Scanner.Workers)
}

// ProvideHub creates the scan report stream hub.
func ProvideHub(log *applogger.Logger) *ws.Hub { return ws.NewHub(log) }

// routes composes the API handler and the stream hub into one HTTP surface.
type routes struct {
	api *api.ScannerEchoHandler
	hub *ws.Hub
}

func (r *routes) RegisterRoutes(e *echo.Echo) {
	r.api.RegisterRoutes(e)
	r.hub.RegisterRoutes(e)
}

// ProvideHTTPHandler builds the full HTTP surface.
func ProvideHTTPHandler(
	log *applogger.Logger,
	eval *usecase.Evaluator,
	scanner *usecase.Scanner,
	phaseGate *phase.Gate,
	store repository.Storage,
	bc icache.BytesCache,
	hub *ws.Hub,
) xhttp.Handler {
	h := api.NewScannerEchoHandler(log, eval, scanner, phaseGate)
	if store != nil {
		h.SetStorage(store)
	}
	h.SetCache(bc)
	return &routes{api: h, hub: hub}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	pipeline *mid.ObservationPipeline,
	processor *usecase.ObservationProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	hub *ws.Hub,
	httpHandler xhttp.Handler,
) *server.App {
	app := server.New(cfg, log, scanner, pipeline, processor, consumer, kh, chClient, hub)
	app.SetHTTPHandler(httpHandler)
	return app
}
