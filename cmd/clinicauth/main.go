// clinicauth - local accounts and sessions for the Clinic Finder front end.
//
// One clinicauth process is one browsing context: it holds a single
// session, shared by every client of its HTTP API. Processes pointed at
// the same SQLite file see the same users and session, and learn about
// each other's changes over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/clinic-auth/migrations"

	"github.com/nerrad567/clinic-auth/internal/api"
	"github.com/nerrad567/clinic-auth/internal/audit"
	"github.com/nerrad567/clinic-auth/internal/auth"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/config"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/database"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/influxdb"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/logging"
	"github.com/nerrad567/clinic-auth/internal/infrastructure/mqtt"
	"github.com/nerrad567/clinic-auth/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// healthInterval is how often infrastructure health is re-checked
	// after startup.
	healthInterval = 30 * time.Second

	// clientIDSuffixLen keeps MQTT client IDs unique per process.
	clientIDSuffixLen = 8
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application, separated from main for testability. It returns
// nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting clinicauth",
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

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	checks := map[string]api.HealthChecker{"database": db}

	// Record changes reach other processes over MQTT. Without a broker the
	// process only hears its own changes.
	var notifier store.Notifier
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		notifier = store.NewMQTTNotifier(mqttClient, mqttClient.Topics(), mqttClient.QoS())
		checks["mqtt"] = mqttClient
	} else {
		log.Warn("MQTT disabled, changes from other processes will not be seen")
		notifier = store.NewLocalBus()
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	records, err := store.Open(store.NewSQLiteBackend(db), notifier)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	records.SetLogger(log.With("component", "store"))
	defer func() {
		if closeErr := records.Close(); closeErr != nil {
			log.Error("error closing record store", "error", closeErr)
		}
	}()

	auditRepo := audit.NewSQLiteRepository(db.DB)
	auditRecorder := audit.NewRecorder(auditRepo, cfg.Site.ID)
	auditRecorder.SetLogger(log.With("component", "audit"))

	events := auth.Recorders{auditRecorder}
	if influxClient != nil {
		events = append(events, influxClient)
	}
	authService, err := auth.NewService(auth.Deps{
		Store:  records,
		Logger: log.With("component", "auth"),
		Events: events,
	})
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}
	if startErr := authService.Start(ctx); startErr != nil {
		return fmt.Errorf("starting auth service: %w", startErr)
	}
	defer authService.Close()

	if cfg.Seed.Enabled() {
		if _, seedErr := authService.EnsureSeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); seedErr != nil {
			return fmt.Errorf("seeding admin: %w", seedErr)
		}
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	apiDeps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Auth:     authService,
		Audit:    auditRepo,
		Health:   checks,
		Database: db,
		Version:  version,
	}
	if mqttClient != nil {
		apiDeps.MQTT = mqttClient
	}
	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		watchHealth(gctx, checks, log)
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// auth service, record store, InfluxDB, MQTT, database.

	log.Info("clinicauth stopped")
	return nil
}

// getConfigPath returns CLINICAUTH_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("CLINICAUTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects with a client ID unique to this process, so several
// processes can share one configured ID prefix on the same broker.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	mqttCfg := cfg.MQTT
	mqttCfg.Broker.ClientID = uniqueClientID(mqttCfg.Broker.ClientID)

	client, err := mqtt.Connect(mqttCfg, cfg.Site.ID)
	if err != nil {
		return nil, err
	}
	client.SetLogger(log.With("component", "mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttCfg.Broker.ClientID,
	)
	return client, nil
}

func uniqueClientID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:clientIDSuffixLen]
}

// healthCheck runs every checker and joins the failures.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	var errs []error
	for name, check := range checks {
		if err := check.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// watchHealth logs infrastructure failures found after startup until ctx
// is cancelled.
func watchHealth(ctx context.Context, checks map[string]api.HealthChecker, log *logging.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := healthCheck(ctx, checks)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("health check failed", "error", err)
			healthy = false
		case err == nil && !healthy:
			log.Info("health restored")
			healthy = true
		}
	}
}
