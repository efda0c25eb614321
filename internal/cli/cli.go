// Package cli implements the roomplan command-line interface.
//
// Commands load instances from TOML or JSON files, solve them through the
// configured oracle driver and print the outcome. The logger is built from
// the app config in PersistentPreRunE and travels in the command context.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/cache"
	"github.com/piwi3910/RoomPlan/internal/engine"
	"github.com/piwi3910/RoomPlan/internal/logging"
	"github.com/piwi3910/RoomPlan/internal/mip"
	"github.com/piwi3910/RoomPlan/internal/model"
	"github.com/piwi3910/RoomPlan/internal/project"
)

const appName = "roomplan"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion records build information shown by --version.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

// CLI holds state shared by all commands.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	configPath   string
	templatePath string
	verbose      bool

	cfg    model.AppConfig
	logger *zap.Logger
}

// New creates a CLI printing results to out and logs to errOut.
func New(out, errOut io.Writer) *CLI {
	return &CLI{
		out:          out,
		errOut:       errOut,
		configPath:   project.DefaultConfigPath(),
		templatePath: project.DefaultTemplatePath(),
		cfg:          model.DefaultAppConfig(),
		logger:       zap.NewNop(),
	}
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "RoomPlan lays out rooms inside a boundary with mixed-integer programming",
		Long: `RoomPlan places rectangular rooms inside a rectangular boundary without
overlap, honoring size, area, aspect and relation constraints, and optimizes
unused area, total perimeter, adjacency or compactness.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("roomplan %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", c.configPath, "config file (TOML, or JSON by extension)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.parseCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	return root
}

// setup loads the config and attaches the logger to the command context.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := project.LoadAppConfigWithEnv(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.Format, appName)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	c.logger = logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	return nil
}

// openSolver opens the configured oracle driver. The returned environment
// must be closed by the caller.
func (c *CLI) openSolver() (*engine.Solver, *mip.Environment, error) {
	env, err := mip.Open(c.cfg.Solver.Driver)
	if err != nil {
		return nil, nil, fmt.Errorf("open oracle (available: %s): %w", strings.Join(mip.Drivers(), ", "), err)
	}
	opts := append(engine.OptionsFromConfig(c.cfg.Solver), engine.WithLogger(c.logger))
	return engine.NewSolver(env, opts...), env, nil
}

// openResults builds the result cache, or a pass-through one when noCache
// is set.
func (c *CLI) openResults(noCache bool) (*cache.Results, error) {
	if noCache {
		return cache.NewResults(nil, 0), nil
	}
	cfg := c.cfg.Cache
	if cfg.Backend == "file" && cfg.Dir == "" {
		cfg.Dir = project.DefaultCacheDir()
	}
	backend, err := cache.Open(cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewResults(backend, cfg.TTL.Std(), cache.WithLogger(c.logger)), nil
}

// rememberInstance records path in the recent list when a config file
// exists.
func (c *CLI) rememberInstance(path string) {
	if _, err := os.Stat(c.configPath); err != nil {
		return
	}
	c.cfg.AddRecent(path)
	if err := project.SaveAppConfig(c.configPath, c.cfg); err != nil {
		c.logger.Warn("failed to update recent instances", zap.Error(err))
	}
}
