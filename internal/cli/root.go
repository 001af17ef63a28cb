// Package cli implements the timeline command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcliao/timeline/internal/config"
	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/mcp"
	"github.com/rcliao/timeline/internal/service"
	"github.com/rcliao/timeline/internal/storage"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// app holds the global flags and the services built from them. Every
// command of one invocation shares it.
type app struct {
	cfgFile    string
	dataDir    string
	projectRef string
	jsonOut    bool
	verbose    bool

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	now    service.Clock

	store       storage.Storage
	projects    *service.ProjectService
	tasks       *service.TaskService
	schedules   *service.ScheduleService
	simulations *service.SimulationService
	summaries   *service.ProjectSummaryService
}

func newApp() *app {
	return &app{
		v:   viper.New(),
		now: time.Now,
	}
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	a := newApp()
	defer a.close()
	return a.rootCmd().ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timeline",
		Short: "Plan a project as a task dependency graph and play it back day by day",
		Long: `timeline schedules a project's tasks from their durations and dependencies,
shows the critical path, and plays the schedule back on a simulated clock.

Quick start:
  timeline init                                Initialize timeline in the current directory
  timeline project create Kitchen --template renovation
  timeline schedule                            Show start days and the critical path
  timeline watch                               Open the interactive timeline`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is <data-dir>/config.yaml)")
	flags.StringVar(&a.dataDir, "data-dir", config.DataDir, "directory holding timeline data")
	flags.StringVarP(&a.projectRef, "project", "p", "", "project id, id prefix or name (default is the current project)")
	flags.BoolVar(&a.jsonOut, "json", false, "output as JSON")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	_ = a.v.BindPFlag("data_dir", flags.Lookup("data-dir"))

	root.AddCommand(newInitCmd(a))
	root.AddCommand(newProjectCmd(a))
	root.AddCommand(newTaskCmd(a))
	root.AddCommand(newScheduleCmd(a))
	root.AddCommand(newSimCmd(a))
	root.AddCommand(newPlayCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newPrefsCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newShellCmd(a))
	return root
}

// setup loads the configuration, opens storage and builds the services.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	if a.logger, err = logging.New(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return err
	}

	a.store, err = storage.Open(cfg.Backend(), cfg.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Backend(), err)
	}
	a.logger.Debug("storage opened", "backend", cfg.Backend(), "dir", cfg.DataDir)

	policy := cfg.Policy()
	a.projects = service.NewProjectService(a.store)
	a.tasks = service.NewTaskService(a.store, a.store, service.TaskOptions{
		Policy:  policy,
		Removal: cfg.RemovalPolicy(),
		Logger:  a.logger,
	})
	a.schedules = service.NewScheduleService(a.store, a.store, policy, a.logger)
	a.simulations = service.NewSimulationService(a.store, a.schedules, cfg.Simulation.Period, a.logger).
		WithClock(a.now)
	a.summaries = service.NewProjectSummaryService(a.simulations)
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil && a.logger != nil {
		a.logger.Warn("failed to close storage", "error", err)
	}
	a.store = nil
}

// project resolves --project, falling back to the current project.
func (a *app) project() (*domain.Project, error) {
	project, err := a.projects.Resolve(a.projectRef)
	if err != nil {
		if a.projectRef == "" {
			return nil, fmt.Errorf("%w (create one with 'timeline project create' or pass --project)", err)
		}
		return nil, err
	}
	return project, nil
}

func (a *app) mcpServer() *mcp.MCPServer {
	return mcp.NewMCPServer(a.projects, a.tasks, a.schedules, a.simulations, a.summaries, a.logger)
}
