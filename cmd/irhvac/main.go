// irhvac drives climate units over infrared.
//
// It accepts JSON commands from TCP line clients, the web UI and MQTT,
// transmits them through the configured emitters, tracks the last commanded
// state of every unit and pushes state changes to every connected observer.
//
// Usage:
//
//	irhvac                  run the controller (config from IRHVAC_CONFIG or configs/config.yaml)
//	irhvac hash-password    read a password on stdin and print its argon2id hash
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/irhvac-core/internal/api"
	"github.com/nerrad567/irhvac-core/internal/auth"
	"github.com/nerrad567/irhvac-core/internal/bridge"
	"github.com/nerrad567/irhvac-core/internal/emitter"
	"github.com/nerrad567/irhvac-core/internal/history"
	"github.com/nerrad567/irhvac-core/internal/hvac"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/database"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/logging"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/irhvac-core/internal/lineproto"
	"github.com/nerrad567/irhvac-core/internal/observer"
	"github.com/nerrad567/irhvac-core/internal/telemetry"
	"github.com/nerrad567/irhvac-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const prunerInterval = time.Hour

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application proper, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting irhvac",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"emitters", len(cfg.Emitters),
		"hvacs", len(cfg.HVACs),
	)

	var site atomic.Pointer[config.Config]
	site.Store(cfg)

	metrics := telemetry.NewMetrics()

	// Embedded broker (optional)
	if cfg.MQTT.Enabled && cfg.MQTT.Embedded.Enabled {
		broker, brokerErr := mqtt.StartBroker(cfg.MQTT.Embedded, log.Logger)
		if brokerErr != nil {
			return fmt.Errorf("starting embedded broker: %w", brokerErr)
		}
		defer func() {
			log.Info("stopping embedded MQTT broker")
			if closeErr := broker.Close(); closeErr != nil {
				log.Error("error closing embedded broker", "error", closeErr)
			}
		}()
		log.Info("embedded MQTT broker started", "address", broker.Address())
	}

	// MQTT client (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	emitterOpts := emitter.Options{
		Logger:     log,
		OnTransmit: metrics.ObserveTransmit,
	}
	if mqttClient != nil {
		topics := mqttClient.Topics()
		emitterOpts.Publisher = mqttClient
		emitterOpts.Topic = topics.Emitter
		emitterOpts.QoS = mqttClient.QoS()
	}

	emitters, registry, err := buildDevices(cfg, emitterOpts)
	if err != nil {
		return err
	}

	// Observers and the control loop
	linePool := observer.NewPool(observer.Options{
		Name:       lineproto.PoolName,
		Capacity:   cfg.Line.MaxClients,
		QueueSize:  cfg.Line.QueueSize,
		Terminator: []byte("\n"),
		Logger:     log,
		OnDrop:     metrics.BroadcastDropped(lineproto.PoolName),
	})
	wsPool := observer.NewPool(observer.Options{
		Name:      api.PoolWebSocket,
		Capacity:  cfg.Line.MaxClients,
		QueueSize: cfg.Line.QueueSize,
		Logger:    log,
		OnDrop:    metrics.BroadcastDropped(api.PoolWebSocket),
	})
	metrics.ObservePool(lineproto.PoolName, linePool.Live)
	metrics.ObservePool(api.PoolWebSocket, wsPool.Live)

	dispatcher := hvac.NewDispatcher(hvac.DefaultDispatchQueue, log)
	dispatcher.AddStateSink(metrics)
	dispatcher.AddCommandSink(metrics)
	metrics.ObserveDispatcher(dispatcher.Dropped)

	proc := hvac.NewProcessor(registry, emitters, hvac.ProcessorOptions{
		Broadcaster: observer.Fanout{linePool, wsPool},
		Events:      dispatcher,
		Logger:      log,
	})
	engine := hvac.NewEngine(hvac.NewLoop(), proc)

	// History (optional)
	var (
		db           *database.DB
		stateHistory *history.StateHistory
		apiHistory   api.StateHistory
		apiCommands  api.CommandLog
	)
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, database.Config{
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
		applied, migrateErr := db.Migrate(ctx, migrations.FS, ".")
		if migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path, "migrations_applied", len(applied))

		stateHistory = history.NewStateHistory(db.DB, log)
		commandLog := history.NewCommandLog(db.DB, log)
		dispatcher.AddStateSink(stateHistory)
		dispatcher.AddCommandSink(commandLog)
		apiHistory, apiCommands = stateHistory, commandLog
	} else {
		log.Info("state history disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		recorder := telemetry.NewInfluxRecorder(influxClient)
		dispatcher.AddStateSink(recorder)
		dispatcher.AddCommandSink(recorder)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT command bridge
	var mqttBridge *bridge.Bridge
	if mqttClient != nil {
		mqttBridge, err = bridge.New(bridge.Deps{
			Client:  mqttClient,
			Engine:  engine,
			Logger:  log,
			Metrics: metrics,
		})
		if err != nil {
			return fmt.Errorf("creating MQTT bridge: %w", err)
		}
		dispatcher.AddStateSink(mqttBridge)
	}

	ctx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	defer func() {
		stop()
		_ = g.Wait()
	}()
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	if stateHistory != nil {
		g.Go(func() error {
			return stateHistory.RunPruner(gctx, prunerInterval, cfg.GetHistoryRetention())
		})
	}
	g.Go(func() error {
		watchReload(gctx, configPath, engine, emitterOpts, &site, log)
		return nil
	})

	if mqttBridge != nil {
		if startErr := mqttBridge.Start(gctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			if closeErr := mqttBridge.Close(); closeErr != nil {
				log.Warn("error closing MQTT bridge", "error", closeErr)
			}
		}()
	}

	lineServer, err := lineproto.New(lineproto.Deps{
		Config:  cfg.Line,
		Engine:  engine,
		Pool:    linePool,
		Logger:  log,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("creating line server: %w", err)
	}
	if startErr := lineServer.Start(gctx); startErr != nil {
		return fmt.Errorf("starting line server: %w", startErr)
	}
	defer func() {
		if closeErr := lineServer.Close(); closeErr != nil {
			log.Error("error closing line server", "error", closeErr)
		}
	}()

	apiDeps := api.Deps{
		Config:         cfg.API,
		WS:             cfg.WebSocket,
		Logger:         log,
		Engine:         engine,
		Observers:      wsPool,
		Site:           site.Load,
		History:        apiHistory,
		Commands:       apiCommands,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
		LineObservers:  linePool.Live,
		Version:        version,
	}
	if mqttClient != nil {
		apiDeps.MQTT = mqttClient
	}
	if db != nil {
		apiDeps.DB = db.DB
	}
	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(gctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(gctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("irhvac stopped")
	return nil
}

// buildDevices creates the emitter set and device registry from cfg.
func buildDevices(cfg *config.Config, opts emitter.Options) (*emitter.Manager, *hvac.Registry, error) {
	emitters, err := emitter.NewManager(cfg.Emitters, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("building emitters: %w", err)
	}
	registry, err := hvac.NewRegistry(cfg.HVACs, emitters.Len())
	if err != nil {
		return nil, nil, fmt.Errorf("building device registry: %w", err)
	}
	return emitters, registry, nil
}

// watchReload re-reads the configuration on SIGHUP and swaps emitters and
// devices inside the control loop. A config that fails to load or validate
// is logged and ignored. Listener and storage settings need a restart.
func watchReload(ctx context.Context, path string, engine *hvac.Engine, opts emitter.Options, site *atomic.Pointer[config.Config], log *logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		if err := reload(ctx, path, engine, opts, site); err != nil {
			log.Error("configuration reload failed", "path", path, "error", err)
			continue
		}
		log.Info("configuration reloaded", "path", path)
	}
}

func reload(ctx context.Context, path string, engine *hvac.Engine, opts emitter.Options, site *atomic.Pointer[config.Config]) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	emitters, registry, err := buildDevices(cfg, opts)
	if err != nil {
		return err
	}
	if err := engine.Do(ctx, func(p *hvac.Processor) { p.Reconfigure(registry, emitters) }); err != nil {
		return fmt.Errorf("applying configuration: %w", err)
	}
	site.Store(cfg)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IRHVAC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRHVAC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional infrastructure connections.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
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
	return nil
}

// hashPassword reads one line from in and writes its argon2id hash to out,
// ready for api.auth.password_hash.
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
