package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Gusify/QualgenAssets/internal/config"
	"github.com/Gusify/QualgenAssets/internal/core/container"
	"github.com/Gusify/QualgenAssets/internal/core/logger"
	"github.com/Gusify/QualgenAssets/internal/core/routes"
	"github.com/Gusify/QualgenAssets/internal/database/migration"
	"github.com/Gusify/QualgenAssets/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// bootstrap loads configuration and builds the container every command
// shares.
func bootstrap(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, err
	}
	app, err := container.NewAppContainer(ctx, cfg, log)
	if err != nil {
		log.Error("Startup failed", zap.Error(err))
		log.Sync()
		return nil, err
	}
	return app, nil
}

func migrate(ctx context.Context, app *container.Container) error {
	if _, err := app.Runner.Run(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the schema and start the HTTP server.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer app.Close()
		defer app.Logger.Sync()

		// Nothing listens until the schema is consistent.
		if err := migrate(ctx, app); err != nil {
			return err
		}

		if !app.Config.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(middleware.RecoveryMiddleware(app.Logger))
		routes.RegisterUtilityRoutes(router, app.Health, app.Runner, app.Logger)

		server := &http.Server{Addr: app.Config.AppHost, Handler: router}
		errCh := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting server", zap.String("addr", app.Config.AppHost))
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			app.Logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	},
}

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the schema migration and exit.",
	Long:  `Runs the same idempotent pipeline serve runs at startup. Safe to repeat.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		defer app.Logger.Sync()

		return migrate(cmd.Context(), app)
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the detected state of every migration step.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		statuses, err := app.Runner.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printStatus(cmd, statuses)
	},
}

func printStatus(cmd *cobra.Command, statuses []migration.StepStatus) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATE")
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%s\n", s.Name, s.State)
	}
	return w.Flush()
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "qualgen-assets",
		Short:         "Qualgen asset tracker service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(ServeCmd, MigrateCmd, StatusCmd)
	return rootCmd
}

func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
