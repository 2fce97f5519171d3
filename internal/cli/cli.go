package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignatij/kyubey/internal/config"
	internal_http "github.com/ignatij/kyubey/internal/http"
	"github.com/ignatij/kyubey/internal/log"
	"github.com/ignatij/kyubey/internal/logs"
	internal_storage "github.com/ignatij/kyubey/internal/storage"
	"github.com/ignatij/kyubey/pkg/models"
	"github.com/ignatij/kyubey/pkg/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// inspector is the part of the service the inspection commands print.
type inspector interface {
	Search(ctx context.Context, searchBy string, page uint32) (models.SearchSystems, error)
	GetDagRunsForSystem(ctx context.Context, systemID string) (models.SystemDagRuns, error)
	GetTaskPage(ctx context.Context, runID string) (models.TaskPage, error)
	ReadTaskLog(ctx context.Context, runID, taskID string, attempt *uint32) (models.TaskLog, error)
}

func SetupCLI(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file (default kyubey.toml when present)")
	rootCmd.PersistentFlags().String("db", "", "Database connection string (overrides config and DATABASE_URL)")
	rootCmd.PersistentFlags().String("log-base-path", "", "Directory holding task attempt logs")

	searchCmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search Systems by client, system or team",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := cmd.Flags().GetUint32("page")
			if err != nil {
				return err
			}
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			return withInspector(cmd, func(svc inspector) error {
				return runSearch(cmd.Context(), svc, newPrinter(cmd.OutOrStdout()), term, page)
			})
		},
	}
	searchCmd.Flags().Uint32("page", 0, "Zero-based result page")

	dagRunsCmd := &cobra.Command{
		Use:   "dag-runs <system_id>",
		Short: "List the DagRuns of a System",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInspector(cmd, func(svc inspector) error {
				return runDagRuns(cmd.Context(), svc, newPrinter(cmd.OutOrStdout()), args[0])
			})
		},
	}

	tasksCmd := &cobra.Command{
		Use:   "tasks <run_id>",
		Short: "List the Tasks of a DagRun",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInspector(cmd, func(svc inspector) error {
				return runTasks(cmd.Context(), svc, newPrinter(cmd.OutOrStdout()), args[0])
			})
		},
	}

	logCmd := &cobra.Command{
		Use:   "log <run_id> <task_id>",
		Short: "Print the log of a task attempt (latest by default)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var attempt *uint32
			if cmd.Flags().Changed("attempt") {
				n, err := cmd.Flags().GetUint32("attempt")
				if err != nil {
					return err
				}
				attempt = &n
			}
			return withInspector(cmd, func(svc inspector) error {
				return runLog(cmd.Context(), svc, newPrinter(cmd.OutOrStdout()), args[0], args[1], attempt)
			})
		},
	}
	logCmd.Flags().Uint32("attempt", 0, "Attempt number, 1-based")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inspection dashboard",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config and PORT)")

	rootCmd.AddCommand(searchCmd, dagRunsCmd, tasksCmd, logCmd, serveCmd)
}

// loadConfig resolves the configuration and applies command-line overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.URL = db
	}
	if base, _ := cmd.Flags().GetString("log-base-path"); base != "" {
		cfg.Logs.BasePath = base
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return err
		}
		cfg.Server.Port = port
	}
	return nil
}

// openService builds the service stack described by cfg. The returned
// function releases the connection pool.
func openService(ctx context.Context, cfg *config.Config) (*service.InspectService, func(), error) {
	logger := log.GetLogger()
	store, err := internal_storage.InitStore(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	source, err := logs.NewSource(cfg.Logs)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	svc := service.NewInspectService(store, logs.NewResolver(source, cfg.Logs.StripANSI), logger)
	return svc, func() {
		if err := store.Close(); err != nil {
			logger.Errorf("Failed to close store: %v", err)
		}
	}, nil
}

func withInspector(cmd *cobra.Command, fn func(svc inspector) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closeStore, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(svc)
}

func serve(cmd *cobra.Command, args []string) error {
	logger := log.GetLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeStore, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	router := internal_http.NewRouter(svc, logger, internal_http.Options{LogRequests: cfg.Server.LogRequests})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return internal_http.StartServer(gctx, fmt.Sprintf(":%d", cfg.Server.Port), router, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Infof("Received shutdown signal")
		}
		return nil
	})
	return g.Wait()
}
