// Coursebook Gateway - HTTP front door for the Coursebook platform
//
// The gateway accepts client requests, publishes them as commands to the
// document and counters workers over the message broker, and answers the
// synchronous ones once the worker's completion comes back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/api"
	"github.com/nerrad567/coursebook-gateway/internal/audit"
	"github.com/nerrad567/coursebook-gateway/internal/auth"
	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/completion"
	"github.com/nerrad567/coursebook-gateway/internal/downstream"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/database"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/metrics"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
	"github.com/nerrad567/coursebook-gateway/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Components are closed in reverse order of creation. The pending registry
// is closed before the HTTP server so every suspended request is answered
// before Shutdown waits on it.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Coursebook gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Observers of closed entries and failed publishes. Each is optional.
	var (
		entryObservers   []pending.Observer
		failureObservers []broker.FailureObserver
	)

	var gatewayMetrics *metrics.Gateway
	if cfg.Metrics.Enabled {
		gatewayMetrics = metrics.NewGateway(cfg.Metrics.Namespace)
		entryObservers = append(entryObservers, gatewayMetrics)
		failureObservers = append(failureObservers, gatewayMetrics)
	}

	// Audit trail (optional)
	var auditRepo audit.Repository
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		repo := audit.NewSQLiteRepository(db.DB)
		auditRepo = repo
		recorder := audit.NewRecorder(repo, log, audit.DefaultQueueSize)
		entryObservers = append(entryObservers, recorder)
		failureObservers = append(failureObservers, recorder)

		// The recorder drains its queue after the registry and broker have
		// stopped producing records, and before the database closes.
		recCtx, stopRecorder := context.WithCancel(context.Background())
		recDone := make(chan struct{})
		go func() {
			defer close(recDone)
			recorder.Run(recCtx)
		}()
		defer func() {
			stopRecorder()
			<-recDone
		}()
	} else {
		log.Info("audit trail disabled")
	}

	// Outcome telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, influxdb.WithErrorHandler(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		}))
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		entryObservers = append(entryObservers, influxClient)
		failureObservers = append(failureObservers, influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Token service
	tokens, err := auth.NewTokenService(cfg.Security.JWT.Secret,
		auth.WithIssuer(cfg.Security.JWT.Issuer),
		auth.WithValidity(cfg.GetTokenValidity()),
	)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// Pending registry
	defaultTimeout, perAction := cfg.GetPendingTimeouts()
	timeouts := pending.Timeouts{Default: defaultTimeout, PerAction: make(map[pending.ActionKind]time.Duration, len(perAction))}
	for action, d := range perAction {
		timeouts.PerAction[pending.ActionKind(action)] = d
	}
	registryOpts := []pending.Option{
		pending.WithLogger(log.With("component", "pending")),
		pending.WithTimeouts(timeouts),
	}
	for _, o := range entryObservers {
		registryOpts = append(registryOpts, pending.WithObserver(o))
	}
	registry := pending.New(registryOpts...)
	defer registry.Close()
	if gatewayMetrics != nil {
		gatewayMetrics.TrackPending(cfg.Metrics.Namespace, registry.Len)
	}

	// Completion router
	router := completion.NewRouter(completion.RouterDeps{
		Registry: registry,
		Tokens:   tokens,
		Logger:   log,
	})
	if gatewayMetrics != nil {
		router.AddListener(gatewayMetrics)
	}

	// Message broker (dialled on first publish)
	dial, err := broker.DialerFor(cfg.Broker, log)
	if err != nil {
		return fmt.Errorf("configuring broker: %w", err)
	}
	brokerOpts := []broker.Option{
		broker.WithLogger(log.With("component", "broker")),
		broker.WithPublishTimeout(cfg.GetPublishTimeout()),
		broker.WithCompletionHandler(router.HandleMessage),
	}
	for _, o := range failureObservers {
		brokerOpts = append(brokerOpts, broker.WithFailureObserver(o))
	}
	publisher := broker.New(dial, brokerOpts...)
	defer func() {
		log.Info("closing broker connection")
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error("error closing broker", "error", closeErr)
		}
	}()

	// An unreachable broker is not fatal: publishes dial again on demand and
	// the completion subscription is made on the first successful dial.
	connCtx, cancelConn := context.WithTimeout(ctx, cfg.GetPublishTimeout())
	connErr := publisher.Connect(connCtx)
	cancelConn()
	if connErr != nil {
		log.Warn("broker not reachable at startup, will retry on first publish",
			"driver", cfg.Broker.Driver,
			"error", connErr,
		)
	}

	// HTTP API
	timeout := cfg.GetDownstreamTimeout()
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Tokens:    tokens,
		Publisher: publisher,
		Pending:   registry,
		Router:    router,
		Documents: downstream.NewDocumentStore(cfg.Downstream.DocumentStoreURL, timeout),
		Counters:  downstream.NewCounters(cfg.Downstream.CountersURL, timeout),
		Audit:     auditRepo,
		Metrics:   gatewayMetrics,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	registry.Close()
	if closeErr := server.Close(); closeErr != nil {
		log.Error("error closing API server", "error", closeErr)
	}

	// Deferred Close() calls run in reverse order:
	// 1. Broker
	// 2. InfluxDB (if enabled)
	// 3. Audit recorder drain (if enabled)
	// 4. Database (if enabled)

	log.Info("Coursebook gateway stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses COURSEBOOK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("COURSEBOOK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional infrastructure connections are healthy.
// The broker is excluded: it is dialled lazily and may come up later.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
