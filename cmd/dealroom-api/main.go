package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborstone/portal/backend/internal/config"
	"github.com/harborstone/portal/backend/internal/database"
	"github.com/harborstone/portal/backend/internal/dealroom"
	"github.com/harborstone/portal/backend/internal/filestore"
	"github.com/harborstone/portal/backend/internal/logging"
	"github.com/harborstone/portal/backend/internal/server"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dealroom-api",
		Short: "Deal room backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup-drafts",
		Short: "Sweep expired deal room drafts and exit",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd.Context())
		},
	}
	rootCmd.AddCommand(cleanupCmd)

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("storage-driver", defaults.GetString("storage.driver"), "Storage driver (file or sqlite)")
	cmd.PersistentFlags().String("data-dir", defaults.GetString("storage.data_dir"), "Directory for JSON data files")
	cmd.PersistentFlags().String("uploads-dir", defaults.GetString("storage.uploads_dir"), "Directory for showcase photo files")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("draft-ttl-hours", defaults.GetInt("draft.ttl_hours"), "Draft expiration window in hours")
	cmd.PersistentFlags().Int("retain-versions", defaults.GetInt("versions.retain"), "Version history entries kept per project")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json or console)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "storage.data_dir", "data-dir")
	bindFlag(cmd, "storage.uploads_dir", "uploads-dir")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "draft.ttl_hours", "draft-ttl-hours")
	bindFlag(cmd, "versions.retain", "retain-versions")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// buildService assembles the repositories for the configured storage driver.
func buildService(appConfig config.AppConfig, logger *zap.Logger) (*dealroom.Service, func() error, error) {
	photoStore, err := filestore.NewPhotoStore(filestore.Config{
		UploadsDir: appConfig.UploadsDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	var rooms dealroom.DealRoomRepository
	var drafts dealroom.DraftRepository
	closer := func() error { return nil }

	switch appConfig.StorageDriver {
	case config.StorageDriverSQLite:
		var db *gorm.DB
		db, err = database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			return nil, nil, dbErr
		}
		closer = sqlDB.Close

		storeConfig := database.StoreConfig{
			DB:             db,
			DraftTTL:       appConfig.DraftTTL,
			RetainVersions: appConfig.RetainVersions,
		}
		rooms, err = database.NewRoomStore(storeConfig)
		if err == nil {
			drafts, err = database.NewDraftStore(storeConfig)
		}
	default:
		storeConfig := filestore.Config{
			DataDir:        appConfig.DataDir,
			UploadsDir:     appConfig.UploadsDir,
			DraftTTL:       appConfig.DraftTTL,
			RetainVersions: appConfig.RetainVersions,
			Logger:         logger,
		}
		rooms, err = filestore.NewRoomStore(storeConfig)
		if err == nil {
			drafts, err = filestore.NewDraftStore(storeConfig)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	service, err := dealroom.NewService(dealroom.ServiceConfig{
		Rooms:  rooms,
		Drafts: drafts,
		Photos: photoStore,
		Clock:  time.Now,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return service, closer, nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	service, closer, err := buildService(appConfig, logger)
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	handler, err := server.NewHTTPHandler(server.Dependencies{
		DealRoomService: service,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("storage_driver", appConfig.StorageDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runCleanup(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	service, closer, err := buildService(appConfig, logger)
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	removed, err := service.CleanupExpiredDrafts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d expired draft(s)\n", removed)
	return nil
}
