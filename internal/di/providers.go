package di

import (
	"fmt"

	"TradeWatch/internal/domain/repository"
	"TradeWatch/internal/handler/api"
	internalrepo "TradeWatch/internal/repository"
	icache "TradeWatch/internal/service/cache"
	"TradeWatch/internal/service/schema"
	"TradeWatch/internal/usecase"
	"TradeWatch/pkg/config"
	xhttp "TradeWatch/pkg/http"
	pkgkafka "TradeWatch/pkg/kafka"
	applogger "TradeWatch/pkg/logger"
	"TradeWatch/pkg/metrics"
	pkgneo4j "TradeWatch/pkg/neo4j"
	"TradeWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideNeo4jClient creates the graph database client.
func ProvideNeo4jClient(cfg *config.Config) (*pkgneo4j.Client, error) {
	client, err := pkgneo4j.NewClient(
		pkgneo4j.WithURI(cfg.Neo4j.URI),
		pkgneo4j.WithCredentials(cfg.Neo4j.User, cfg.Neo4j.Password),
		pkgneo4j.WithDatabase(cfg.Neo4j.Database),
		pkgneo4j.WithDialTimeout(cfg.Neo4j.DialTimeout),
		pkgneo4j.WithQueryTimeout(cfg.Neo4j.QueryTimeout),
		pkgneo4j.WithMaxPoolSize(cfg.Neo4j.MaxPoolSize),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j client: %w", err)
	}
	return client, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideGraphStore adapts the Neo4j client to the GraphStore port.
func ProvideGraphStore(client *pkgneo4j.Client, m repository.Metrics) repository.GraphStore {
	return internalrepo.NewNeo4jGraphStore(client, m)
}

// ProvideAlertPublisher creates the Kafka alert publisher. Returns nil when
// monitoring is disabled; no producer connection is opened in that case.
func ProvideAlertPublisher(cfg *config.Config) (repository.AlertPublisher, error) {
	if !cfg.Monitor.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideDedupeCache picks Redis when configured, in-process TTL cache otherwise.
func ProvideDedupeCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideSchemaDiscovery creates the schema discovery service.
func ProvideSchemaDiscovery(store repository.GraphStore, logger *applogger.Logger, m repository.Metrics, cfg *config.Config) *schema.Discovery {
	return schema.New(store, logger,
		schema.WithSampleSize(cfg.Detection.SampleSize),
		schema.WithPatternLimit(cfg.Detection.PatternLimit),
		schema.WithMetrics(m),
	)
}

// ProvideDetector creates the detection engine facade.
func ProvideDetector(store repository.GraphStore, discovery *schema.Discovery, logger *applogger.Logger, m repository.Metrics, cfg *config.Config) *usecase.Detector {
	return usecase.NewDetector(store, discovery, logger, m, cfg.Detection.LookbackHours)
}

// ProvideMonitor creates the continuous monitor, or nil when disabled.
func ProvideMonitor(detector *usecase.Detector, publisher repository.AlertPublisher, dedupe icache.BytesCache, logger *applogger.Logger, cfg *config.Config) *usecase.Monitor {
	if !cfg.Monitor.Enabled || publisher == nil {
		return nil
	}
	return usecase.NewMonitor(detector, publisher, dedupe, logger, usecase.MonitorConfig{
		Interval:      cfg.Monitor.CheckInterval,
		LookbackHours: cfg.Monitor.LookbackHours,
		MinConfidence: cfg.Monitor.MinConfidence,
		DedupeTTL:     cfg.Monitor.DedupeTTL,
	})
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(logger *applogger.Logger, detector *usecase.Detector, store repository.GraphStore) xhttp.Handler {
	return api.NewDetectionHandler(logger, detector, store)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	store repository.GraphStore,
	publisher repository.AlertPublisher,
	monitor *usecase.Monitor,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, logger, store, publisher, monitor, handler)
}
