package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"authlinks/internal/authority"
	"authlinks/internal/config"
	"authlinks/internal/constants"
	"authlinks/internal/links"
	"authlinks/internal/logger"
	"authlinks/internal/propagation"
	"authlinks/internal/rules"
	"authlinks/internal/sourcerecord"
	"authlinks/internal/stats"
	"authlinks/internal/tenant"
	"authlinks/pkg/bootstrap"
	"authlinks/pkg/circuitbreaker"
	"authlinks/pkg/health"
	"authlinks/pkg/logging"
	"authlinks/pkg/metrics"
	"authlinks/pkg/tracing"
)

const serviceName = "propagation-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	postgresDB     *sql.DB
	handler        *propagation.MessageHandler
	consortium     *propagation.ConsortiumPropagator
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if err := a.initPostgreSQL(ctx); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterPropagationMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterDatabaseMetrics()
	if a.Config.Consortium.Enabled {
		metrics.RegisterConsortiumMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	return nil
}

func (a *App) initPostgreSQL(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.postgresDB = db

	if a.Config.Database.RunMigrations {
		if err := a.dbConnector.RunMigrations(db, constants.DefaultMigrationsPath); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) initService(ctx context.Context) error {
	cfg := a.Config

	linksRepo := links.NewRepository(a.postgresDB)
	statsRepo := stats.NewRepository(a.postgresDB)
	authorityRepo := authority.NewRepository(a.postgresDB)

	rulesClient := rules.NewHTTPClient(
		cfg.Integrations.LinkingRulesURL,
		circuitbreaker.NewWrapper(a.breakerConfig("linking-rules")),
	)
	resolver := rules.NewResolver(rulesClient, 0)

	sourceRecords := sourcerecord.NewHTTPClient(
		cfg.Integrations.SourceStorageURL,
		circuitbreaker.NewWrapper(a.breakerConfig("source-storage")),
	)
	sourceFiles := sourcerecord.NewCachedSourceFileClient(
		cfg.Integrations.SourceFilesURL,
		a.redis,
		cfg.Integrations.BaseURLCacheTTL,
		a.Logger,
	)

	pageSize := cfg.Propagation.LinkPageSize
	updateHandler := propagation.NewUpdateHandler(linksRepo, resolver, sourceRecords, sourceFiles, pageSize, a.Logger)
	deleteHandler := propagation.NewDeleteHandler(linksRepo, authorityRepo, pageSize, a.Logger)

	router, err := propagation.NewRouter(a.Logger, updateHandler, deleteHandler)
	if err != nil {
		return err
	}

	emitter := propagation.NewKafkaEmitter(
		a.Producer,
		cfg.Broker.Kafka.Environment,
		a.outputTopic(),
		a.Logger,
	)

	var consortium propagation.ConsortiumScheduler
	if cfg.Consortium.Enabled {
		a.consortium = propagation.NewConsortiumPropagator(
			emitter,
			cfg.Consortium.CentralTenant,
			cfg.Consortium.MemberTenants,
			cfg.Consortium.Workers,
			cfg.Consortium.QueueSize,
			cfg.Consortium.RPS,
			cfg.Consortium.Burst,
			a.Logger,
		)
		consortium = a.consortium
	}

	orchestrator := propagation.NewOrchestrator(
		router,
		linksRepo,
		statsRepo,
		tenant.NewSystemUserExecutor(a.Logger),
		emitter,
		consortium,
		a.Logger,
	)

	var dedupe propagation.DedupeGuard
	if cfg.Propagation.DedupeGuard.Enabled {
		dedupe = propagation.NewRedisDedupeGuard(a.redis, cfg.Propagation.DedupeGuard.TTLSeconds, a.Logger)
	}

	a.handler = propagation.NewMessageHandler(orchestrator, dedupe, a.Logger)
	return nil
}

func (a *App) breakerConfig(name string) circuitbreaker.Config {
	cbCfg := a.Config.CircuitBreaker
	if !cbCfg.Enabled {
		return circuitbreaker.DefaultConfig(name)
	}
	return circuitbreaker.Config{
		Name:        name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cbCfg.MinRequests && failureRatio >= cbCfg.FailureRatio
		},
	}
}

func (a *App) initHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.postgresDB != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB))
	}
	if a.Config.Broker.Type == "kafka" {
		healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) inputTopic() string {
	if topic := a.Config.Broker.Kafka.InputTopic; topic != "" {
		return topic
	}
	return constants.DefaultInputTopic
}

func (a *App) outputTopic() string {
	if topic := a.Config.Broker.Kafka.OutputTopic; topic != "" {
		return topic
	}
	return constants.DefaultOutputTopic
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	if a.consortium != nil {
		a.consortium.Start(gCtx)
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting authority event consumer", "topic", a.inputTopic())
		return a.Consumer.Consume(gCtx, a.inputTopic(), a.handler.BatchHandler())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down propagation service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.consortium != nil {
			a.consortium.Stop()
		}

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redis, a.postgresDB)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
