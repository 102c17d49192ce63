package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/config"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/db"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/jsonfile"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/sqlite"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/httpapi"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/logging"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/metrics"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/notify"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gatekeeper-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDefaultCredentials() {
		logger.Warn().Msg("default admin credentials in use; set GATEKEEPER_ADMIN_PASSWORD")
	}

	// Stores
	stores, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	photoStore, err := openPhotos(ctx, cfg.Photos)
	if err != nil {
		return err
	}

	m := metrics.New()

	var notifier service.Notifier
	if cfg.MQTT.Broker != "" {
		pub, err := notify.DialMQTT(notify.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("mqtt unavailable; security events will not be published")
		} else {
			defer pub.Close()
			notifier = notify.NewSecurityEvents(pub, cfg.MQTT.TopicPrefix, logger)
		}
	}

	// Services
	collections, err := service.Open(ctx, service.Options{
		Stores:   stores,
		Photos:   photoStore,
		Notifier: notifier,
		Observer: m,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	m.RegisterCollectionSizes(collections.Counts)

	added, err := collections.EnsureCards(ctx, cfg.Bootstrap.CardUIDs)
	if err != nil {
		return fmt.Errorf("bootstrap cards: %w", err)
	}
	if added > 0 {
		logger.Info().Int("added", added).Msg("bootstrap cards registered")
	}

	checkins := service.NewCheckinService(service.CheckinOptions{
		History:  stores.Checkins,
		Observer: m,
		Logger:   logger,
	})

	// HTTP
	srv, err := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger,
		Addr:        cfg.Server.HTTPAddr,
		Collections: collections,
		Checkins:    checkins,
		Status:      service.NewStatusService(collections, checkins, nil),
		Access:      service.NewAccessService(collections, logger),
		Auth: httpapi.AuthConfig{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
			Secret:   []byte(cfg.Auth.SessionSecret),
			TTL:      cfg.Auth.SessionTTL,
		},
		CORSOrigins:    cfg.Server.CORSOrigins,
		LoginRateLimit: cfg.Server.LoginRateLimit,
		Metrics:        m,
	})
	if err != nil {
		return err
	}

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: 2 * cfg.Server.ShutdownGrace})
	tree.AddAPIService(supervisor.NewHTTPService(srv, cfg.Server.ShutdownGrace))
	if cfg.Server.GRPCAddr != "" {
		tree.AddAPIService(grpcapi.NewServer(cfg.Server.GRPCAddr, cfg.Server.ShutdownGrace, logger))
	}

	pruner := service.NewCheckinPruner(stores.Checkins, service.PrunerConfig{
		RetentionDays: cfg.Checkins.RetentionDays,
		IntervalHours: cfg.Checkins.PruneIntervalHours,
	}, logger)
	if pruner.Enabled() {
		tree.AddMaintenanceService(pruner)
	}

	logger.Info().
		Str("addr", cfg.Server.HTTPAddr).
		Str("env", cfg.Env).
		Str("storage", cfg.Storage.Driver).
		Str("photos", cfg.Photos.Driver).
		Msg("gatekeeper server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("supervisor stopped")
	}
	if names := tree.Unstopped(); len(names) > 0 {
		logger.Warn().Strs("services", names).Msg("services failed to stop within timeout")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// openStores returns the collection stores for the configured driver and a
// func releasing whatever it opened.
func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.Stores, func(), error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		conn, err := db.Open(ctx, db.Config{Path: cfg.Storage.DBPath, Env: cfg.Env})
		if err != nil {
			return store.Stores{}, nil, err
		}
		writer := db.NewWorker(conn)
		return sqlite.NewStores(conn, writer), func() {
			writer.Close()
			_ = conn.Close()
		}, nil
	default:
		stores, err := jsonfile.NewStores(cfg.Storage.DataDir, logger)
		if err != nil {
			return store.Stores{}, nil, err
		}
		return stores, func() {}, nil
	}
}

func openPhotos(ctx context.Context, cfg config.PhotosConfig) (photos.Store, error) {
	if cfg.Driver == "s3" {
		return photos.NewS3(ctx, photos.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	}
	return photos.NewFilesystem(cfg.Dir)
}
