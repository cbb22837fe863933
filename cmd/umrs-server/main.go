package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/umrs/umrs/internal/config"
	"github.com/umrs/umrs/internal/domain/access"
	"github.com/umrs/umrs/internal/domain/account"
	"github.com/umrs/umrs/internal/domain/medrecord"
	"github.com/umrs/umrs/internal/domain/patient"
	"github.com/umrs/umrs/internal/domain/sharing"
	"github.com/umrs/umrs/internal/platform/auth"
	"github.com/umrs/umrs/internal/platform/blobstore"
	"github.com/umrs/umrs/internal/platform/db"
	"github.com/umrs/umrs/internal/platform/middleware"
	"github.com/umrs/umrs/internal/platform/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "umrs-server",
		Short: "Unified Medical Records System API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			sqlDB, err := db.Open(ctx, cfg.DatabasePath, cfg.DBMaxConns, cfg.BusyTimeout())
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			count, err := db.NewMigrator(sqlDB, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			sqlDB, err := db.Open(ctx, cfg.DatabasePath, cfg.DBMaxConns, cfg.BusyTimeout())
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			statuses, err := db.NewMigrator(sqlDB, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().
			Str("env", cfg.Env).
			Msg("development mode: DevAuthMiddleware is active, all requests get admin access")
	}

	// Database
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, cfg.DatabasePath, cfg.DBMaxConns, cfg.BusyTimeout())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer sqlDB.Close()
	logger.Info().Str("path", cfg.DatabasePath).Msg("database opened")

	if _, err := db.NewMigrator(sqlDB, "./migrations").Up(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	writer := db.NewWriter(sqlDB, cfg.WriteRetryAttempts, cfg.WriteRetryDelay(), logger)

	// File storage for shared record uploads
	blobs, err := blobstore.NewFS(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	jwtCfg := auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		TokenTTL:   cfg.TokenTTL(),
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.Audit(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(sqlDB))

	// Services
	patientRepo := patient.NewRepoSQLite(sqlDB, writer)
	patientSvc := patient.NewService(patientRepo, logger)

	accessRepo := access.NewRepoSQLite(sqlDB, writer)
	accessSvc := access.NewService(accessRepo, patientSvc, logger)

	requestRepo := sharing.NewRequestRepoSQLite(sqlDB, writer)
	shareRepo := sharing.NewShareRepoSQLite(sqlDB, writer)
	sharingSvc := sharing.NewService(requestRepo, shareRepo, logger)

	recordRepo := medrecord.NewRepoSQLite(sqlDB, writer)
	recordSvc := medrecord.NewService(recordRepo, logger)

	accountRepo := account.NewRepoSQLite(sqlDB, writer)
	accountSvc := account.NewService(accountRepo, jwtCfg, logger)

	// Routes: /auth endpoints stay open, everything else requires a session.
	open := e.Group("/api/v1")
	account.NewHandler(accountSvc).RegisterRoutes(open)

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(jwtCfg))
	}

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	access.NewHandler(accessSvc).RegisterRoutes(apiV1)
	sharing.NewHandler(sharingSvc, blobs, logger).RegisterRoutes(apiV1)
	medrecord.NewHandler(recordSvc).RegisterRoutes(apiV1)
	reporting.NewHandler(sqlDB).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
