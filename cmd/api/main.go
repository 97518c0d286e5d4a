package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/MOhammedRiaad/EMS-sub006/internal/api/handlers"
	"github.com/MOhammedRiaad/EMS-sub006/internal/application"
	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/audit"
	"github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/memory"
	mongoRepo "github.com/MOhammedRiaad/EMS-sub006/internal/infrastructure/mongodb"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/idempotency"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/kafka"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/metrics"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/middleware"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/mongodb"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/outbox"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/resilience"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/tracing"
)

const serviceName = "pos-ledger-service"

const (
	driverMongo  = "mongodb"
	driverMemory = "memory"

	sinkKafka = "kafka"
	sinkLog   = "log"
)

func main() {
	config := loadConfig()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(config.LogLevel)
	logConfig.Environment = config.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting pos-ledger-service API", "storeDriver", config.StoreDriver, "auditSink", config.AuditSink)

	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = config.OTLPEndpoint
	tracingConfig.Environment = config.Environment
	tracingConfig.Enabled = config.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint, "enabled", tracingConfig.Enabled)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	eventFactory := cloudevents.NewEventFactory("/" + serviceName)

	producer := kafka.NewProducer(config.Kafka)
	defer producer.Close()
	instrumentedProducer := kafka.NewInstrumentedProducer(producer, m, logger)

	var (
		deps       application.Dependencies
		outboxRepo outbox.Repository
		keyRepo    idempotency.KeyRepository
		readyCheck = func(context.Context) error { return nil }
	)

	switch config.StoreDriver {
	case driverMemory:
		memOutbox := outbox.NewMemoryRepository()
		store := memory.NewStore(eventFactory, memOutbox)
		deps = application.Dependencies{
			Transactions: store,
			Products:     store.Products(),
			Stock:        store.Stock(),
			Clients:      store.Clients(),
			Ledger:       store.Ledger(),
			Sales:        store.Sales(),
		}
		outboxRepo = memOutbox
		keyRepo = idempotency.NewMemoryKeyRepository()
		logger.Warn("Using in-memory store; data is lost on restart")

	default:
		monitor := mongodb.NewCommandMonitor(m, logger)
		mongoClient, err := mongodb.NewClient(ctx, config.MongoDB, monitor.Monitor())
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer mongoClient.Close(ctx)
		logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

		repos := mongoRepo.NewRepositories(mongoClient.Database(), eventFactory, config.TransactionTimeout)
		if err := repos.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to ensure indexes")
		}

		mongoKeys := idempotency.NewMongoKeyRepository(mongoClient.Database())
		if err := mongoKeys.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to ensure idempotency indexes")
		}

		deps = application.Dependencies{
			Transactions: repos.Transactions,
			Products:     repos.Products,
			Stock:        repos.Stock,
			Clients:      repos.Clients,
			Ledger:       repos.Ledger,
			Sales:        repos.Sales,
		}
		outboxRepo = repos.Outbox
		keyRepo = mongoKeys
		readyCheck = mongoClient.HealthCheck
	}

	deps.Audit = newAuditSink(config, instrumentedProducer, eventFactory, logger, m)
	deps.Logger = logger
	deps.Metrics = m

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relayDone := make(chan struct{})
	if config.OutboxEnabled {
		publisher := outbox.NewPublisher(outboxRepo, instrumentedProducer, logger, m, &outbox.PublisherConfig{
			PollInterval: config.OutboxPollInterval,
			BatchSize:    100,
			Retention:    config.OutboxRetention,
		})
		go func() {
			defer close(relayDone)
			if err := publisher.Run(relayCtx); err != nil {
				logger.WithError(err).Error("Outbox publisher exited")
			}
		}()
	} else {
		close(relayDone)
	}

	saleService := application.NewSaleService(deps, application.Config{
		MaxAttempts:  config.SaleMaxAttempts,
		RetryBackoff: config.SaleRetryBackoff,
	})
	saleHandler := handlers.NewSaleHandler(saleService, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	mwConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	mwConfig.Metrics = m
	mwConfig.EnableTracing = config.TracingEnabled
	middleware.Setup(router, mwConfig)

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, readyCheck))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantAuth())
	if config.IdempotencyEnabled {
		idemConfig := idempotency.DefaultConfig(serviceName, keyRepo, logger)
		idemConfig.Metrics = m
		idemConfig.ScopeExtractor = func(c *gin.Context) string {
			return c.GetHeader(middleware.HeaderTenantID)
		}
		v1.Use(idempotency.Middleware(idemConfig))
	}
	saleHandler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	stopRelay()
	<-relayDone

	logger.Info("Server stopped")
}

func newAuditSink(config *Config, writer kafka.EventWriter, eventFactory *cloudevents.EventFactory, logger *logging.Logger, m *metrics.Metrics) domain.AuditSink {
	if config.AuditSink != sinkKafka {
		return audit.NewLogAuditSink(logger)
	}

	breakerConfig := resilience.DefaultCircuitBreakerConfig("kafka-audit")
	breakerConfig.OnStateChange = func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, resilience.StateValue(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}
	breaker := resilience.NewCircuitBreaker(breakerConfig, logger.Logger)

	return audit.NewKafkaAuditSink(writer, eventFactory, breaker, audit.DefaultPublishTimeout)
}

// Config holds application configuration
type Config struct {
	ServerAddr  string
	StoreDriver string
	MongoDB     *mongodb.Config
	Kafka       *kafka.Config

	AuditSink          string
	OutboxEnabled      bool
	OutboxPollInterval time.Duration
	OutboxRetention    time.Duration

	SaleMaxAttempts    int
	SaleRetryBackoff   time.Duration
	TransactionTimeout time.Duration

	IdempotencyEnabled bool
	TracingEnabled     bool
	OTLPEndpoint       string

	LogLevel    string
	Environment string
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.AppName = serviceName

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ClientID = serviceName

	storeDriver := strings.ToLower(getEnv("STORE_DRIVER", driverMongo))
	if storeDriver != driverMemory {
		storeDriver = driverMongo
	}
	auditSink := strings.ToLower(getEnv("AUDIT_SINK", sinkLog))
	if auditSink != sinkKafka {
		auditSink = sinkLog
	}

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		StoreDriver: storeDriver,
		MongoDB:     mongoConfig,
		Kafka:       kafkaConfig,

		AuditSink:          auditSink,
		OutboxEnabled:      getEnvBool("OUTBOX_ENABLED", true),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxRetention:    getEnvDuration("OUTBOX_RETENTION", 24*time.Hour),

		SaleMaxAttempts:    getEnvInt("SALE_MAX_ATTEMPTS", application.DefaultMaxAttempts),
		SaleRetryBackoff:   getEnvDuration("SALE_RETRY_BACKOFF", application.DefaultRetryBackoff),
		TransactionTimeout: getEnvDuration("TRANSACTION_TIMEOUT", 10*time.Second),

		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", true),
		TracingEnabled:     getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
