package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/api"
	"github.com/Checker-Finance/personio-adapter/internal/config"
	"github.com/Checker-Finance/personio-adapter/internal/documents"
	"github.com/Checker-Finance/personio-adapter/internal/etl"
	"github.com/Checker-Finance/personio-adapter/internal/jobs"
	"github.com/Checker-Finance/personio-adapter/internal/personio"
	"github.com/Checker-Finance/personio-adapter/internal/publisher"
	"github.com/Checker-Finance/personio-adapter/internal/rate"
	internalsecrets "github.com/Checker-Finance/personio-adapter/internal/secrets"
	"github.com/Checker-Finance/personio-adapter/internal/service"
	"github.com/Checker-Finance/personio-adapter/internal/store"
	"github.com/Checker-Finance/personio-adapter/pkg/logger"
	"github.com/Checker-Finance/personio-adapter/pkg/secrets"
	"github.com/Checker-Finance/personio-adapter/pkg/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	runOnce := flag.Bool("once", false, "run a single sync and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [personio-adapter]...")
	logg.Infow("personio API", "base_url", cfg.PersonioBaseURL)

	// --- Credentials: env first, AWS Secrets Manager as fallback ---
	clientID, clientSecret := cfg.ClientID, cfg.ClientSecret
	stopCleaner := make(chan struct{})
	if clientID == "" {
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		credCache := secrets.NewCache[internalsecrets.Credentials](cfg.CacheTTL)
		go credCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

		resolver := internalsecrets.NewResolver(logger.L(), awsProvider, credCache, cfg.SecretName)
		creds, err := resolver.Resolve(ctx)
		if err != nil {
			logg.Fatalw("failed to resolve Personio credentials", "error", err)
		}
		clientID, clientSecret = creds.ClientID, creds.ClientSecret
	}
	logg.Infow("personio credentials loaded", "client_id", utils.MaskSecret(clientID))

	// --- Personio client ---
	tokens := personio.NewTokenManager(logger.L(), cfg.PersonioBaseURL, clientID, clientSecret)
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RequestsPerSec,
		Burst:             cfg.Burst,
	})
	client := personio.NewClient(logger.L(), tokens, rateMgr, cfg.PersonioBaseURL)

	// --- Store (Redis + Postgres hybrid, optional) ---
	var st store.Store
	if cfg.RedisAddr != "" {
		logg.Info("connecting to store, DSN: ", utils.MaskDSN(cfg.DatabaseURL))
		st, err = store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
			MaxConns:          int32(cfg.PGMaxConns),
			MinConns:          int32(cfg.PGMinConns),
			MaxConnLifetime:   cfg.PGMaxConnLifetime,
			MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
			HealthCheckPeriod: cfg.PGHealthCheckPeriod,
		}, logger.L())
		if err != nil {
			logg.Fatalw("failed to init store", "error", err)
		}
	} else {
		logg.Warn("REDIS_ADDR not configured; running with CSV output only")
	}

	// --- NATS publisher (optional) ---
	var nc *nats.Conn
	var pub *publisher.Publisher
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err = publisher.New(logger.L(), nc, cfg.ServiceName)
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
	} else {
		logg.Warn("NATS_URL not configured; sync events disabled")
	}

	// --- ETL pipeline ---
	loader, err := etl.NewLoader(cfg.OutputPath, logger.L())
	if err != nil {
		logg.Fatalw("failed to prepare output directory", "error", err, "path", cfg.OutputPath)
	}

	var downloader *documents.Downloader
	if cfg.IncludeDocuments {
		downloader = documents.NewDownloader(client, logger.L(), cfg.OutputPath)
	}

	svc := service.New(
		logger.L(),
		etl.NewExtractor(client, logger.L(), cfg.MaxPages),
		etl.NewTransformer(logger.L()),
		loader,
		downloader,
		st,
		pub,
		service.Options{IncludeDocuments: cfg.IncludeDocuments},
	)

	if *runOnce {
		_, err := svc.Run(ctx)
		shutdown(logg, stopCleaner, nil, nil, nc, st)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	api.RegisterRoutes(app, nc, st, api.NewSyncHandler(logger.L(), svc))

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Daily scheduler ---
	var scheduler *jobs.Scheduler
	if cfg.ScheduleEnabled {
		scheduler = jobs.NewScheduler(logger.L(), svc, cfg.DailyAt)
		go scheduler.Start(ctx)
	} else {
		logg.Warn("SCHEDULE_ENABLED not set; syncs run on demand via POST /api/v1/sync")
	}

	logg.Infow("[personio-adapter] running",
		"env", cfg.Env,
		"port", cfg.Port,
		"output_path", cfg.OutputPath,
		"include_documents", cfg.IncludeDocuments,
		"schedule_enabled", cfg.ScheduleEnabled)

	<-ctx.Done()
	logg.Info("shutting down [personio-adapter]...")
	shutdown(logg, stopCleaner, scheduler, app, nc, st)
}

func shutdown(logg *zap.SugaredLogger, stopCleaner chan struct{}, scheduler *jobs.Scheduler, app *fiber.App, nc *nats.Conn, st store.Store) {
	close(stopCleaner)
	if scheduler != nil {
		scheduler.Stop()
	}
	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logg.Warnw("fiber.shutdown_failed", "error", err)
		}
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logg.Warnw("store.close_failed", "error", err)
		}
	}
}
