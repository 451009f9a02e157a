// hvpsud is the high-voltage PSU service.
//
// It owns every configured PSU through a single psu.Manager and exposes it
// over HTTP/WebSocket, MQTT commands and telemetry, InfluxDB and Prometheus.
// On shutdown every PSU handle is released before the process exits.
//
// "hvpsud migrate-down" reverts the latest audit schema migration and exits
// without starting the service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/hvpsu/internal/api"
	"github.com/nerrad567/hvpsu/internal/audit"
	"github.com/nerrad567/hvpsu/internal/driver"
	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/infrastructure/database"
	"github.com/nerrad567/hvpsu/internal/infrastructure/influxdb"
	"github.com/nerrad567/hvpsu/internal/infrastructure/logging"
	"github.com/nerrad567/hvpsu/internal/infrastructure/mqtt"
	"github.com/nerrad567/hvpsu/internal/metrics"
	"github.com/nerrad567/hvpsu/internal/psu"
	"github.com/nerrad567/hvpsu/internal/telemetry"
	"github.com/nerrad567/hvpsu/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// teardownTimeout bounds the shutdown teardown. It runs after the
	// signal context is already cancelled.
	teardownTimeout = 15 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := run
	if len(os.Args) > 1 && os.Args[1] == migrateDownArg {
		runner = migrateDown
	}
	if err := runner(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting hvpsud",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "psus", len(cfg.PSUs))

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Audit database (optional)
	var db *database.DB
	var auditRepo audit.Repository
	var observer psu.CommandObserver
	if cfg.Database.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
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

		if migrateErr := db.Migrate(ctx, migrations.FS, migrations.Dir); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		repo := audit.NewSQLiteRepository(db.DB)
		auditRepo = repo
		observer = audit.NewRecorder(repo, log.Component("audit")).Observe
	} else {
		log.Info("audit database disabled")
	}

	// PSU manager
	factory, err := driver.NewFactory(cfg, log.Component("driver"))
	if err != nil {
		return fmt.Errorf("creating hardware driver: %w", err)
	}
	managerOpts := []psu.Option{psu.WithLogger(log.Component("psu"))}
	if observer != nil {
		managerOpts = append(managerOpts, psu.WithObserver(observer))
	}
	manager, err := psu.NewManager(driver.DeviceConfigs(cfg.PSUs), factory, managerOpts...)
	if err != nil {
		return fmt.Errorf("creating psu manager: %w", err)
	}
	// Registered before every command surface so it runs after they stop.
	defer teardown(manager, log)
	log.Info("psu manager ready", "driver", cfg.Driver.Type, "identities", manager.Identities())

	status := psu.NewStatusAggregator(cfg.Service.ID, manager)

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		commands := telemetry.NewCommandHandler(ctx, manager, mqttClient, log.Component("commands"))
		if startErr := commands.Start(); startErr != nil {
			return fmt.Errorf("subscribing to PSU commands: %w", startErr)
		}
		defer func() {
			if stopErr := commands.Stop(); stopErr != nil {
				log.Warn("error unsubscribing PSU commands", "error", stopErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		manager.SetObserver(psu.ChainObservers(observer, telemetry.RecordCommands(influxClient)))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	// Prometheus (optional)
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer, err = newRegistry(manager, hub)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}

	// HTTP API

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Metrics:   cfg.Metrics,
		Service:   cfg.Service,
		Logger:    log,
		Manager:   manager,
		Status:    status,
		AuditRepo: auditRepo,
		Gatherer:  gatherer,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	if cfg.Security.JWT.Secret == "" {
		log.Warn("API authentication disabled: security.jwt.secret is empty")
	}

	// Telemetry reporter
	if cfg.Telemetry.Enabled {
		opts := []telemetry.Option{
			telemetry.WithBroadcaster(hub),
			telemetry.WithLogger(log.Component("telemetry")),
		}
		if mqttClient != nil {
			opts = append(opts, telemetry.WithBus(mqttClient))
		}
		if influxClient != nil {
			opts = append(opts, telemetry.WithPointWriter(influxClient))
		}
		reporter := telemetry.NewReporter(status, cfg.Telemetry.Interval, opts...)
		go reporter.Run(ctx)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. InfluxDB
	// 3. MQTT command subscriptions, then MQTT
	// 4. PSU teardown
	// 5. Database
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HVPSU_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HVPSU_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newRegistry builds the registry served on the metrics path.
func newRegistry(source psu.Snapshotter, sessions metrics.SessionCounter) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(source),
		metrics.NewSessionGauge(sessions),
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// teardown disconnects every PSU and parks it. Outputs and relays are left
// as the hardware holds them; nothing is zeroed. The teardown is attributed
// to the system actor.
func teardown(manager *psu.Manager, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	ctx = audit.WithActor(ctx, audit.Actor{Source: audit.SourceSystem})

	log.Info("tearing down PSUs")
	if err := manager.TeardownAll(ctx); err != nil {
		log.Error("PSU teardown incomplete", "error", err)
		return
	}
	log.Info("PSUs torn down")
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check (nil if disabled)
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//   - server: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
