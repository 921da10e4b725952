package main

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/go-catalog/internal/config"
	"github.com/deppfellow/go-catalog/internal/database"
	"github.com/deppfellow/go-catalog/internal/handler"
	"github.com/deppfellow/go-catalog/internal/logger"
	"github.com/deppfellow/go-catalog/internal/repository"
	"github.com/deppfellow/go-catalog/internal/router"
	"github.com/deppfellow/go-catalog/internal/server"
	"github.com/deppfellow/go-catalog/internal/service"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
)

const defaultShutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		migrate         bool
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), migrate, shutdownTimeout)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the database schema before serving")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "time allowed for in-flight requests on shutdown")

	return cmd
}

func serve(ctx context.Context, migrate bool, shutdownTimeout time.Duration) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		return err
	}

	if migrate {
		if err := database.Migrate(ctx, &log, cfg, srv.DB); err != nil {
			_ = srv.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	repos, err := repository.NewRepositories(srv)
	if err != nil {
		_ = srv.Close()
		return err
	}

	services, err := service.NewService(srv, repos)
	if err != nil {
		_ = srv.Close()
		return fmt.Errorf("could not create services: %w", err)
	}

	handlers := handler.NewHandlers(srv, services)
	r := router.NewRouter(srv, handlers)
	srv.SetupHTTPServer(r)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"catalog": func(ctx context.Context) error {
				log.Info().Msg("graceful shutdown initiated")
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("server exited")
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", exitCode)
	}
	return nil
}
