package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/piwi3910/RoomPlan/internal/model"
	"github.com/piwi3910/RoomPlan/internal/project"
	"github.com/piwi3910/RoomPlan/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			solver, env, err := c.openSolver()
			if err != nil {
				return err
			}
			defer env.Close()
			results, err := c.openResults(noCache)
			if err != nil {
				return err
			}
			defer results.Close()
			store, err := project.LoadTemplates(c.templatePath)
			if err != nil {
				return err
			}

			srv := server.New(solver,
				server.WithLogger(c.logger),
				server.WithDefaults(c.cfg.Solver),
				server.WithResults(results),
				server.WithTemplates(project.Catalog(store)))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the result cache")
	return cmd
}

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Backend == "" || c.cfg.Cache.Backend == "none" {
				printInfo(c.out, "Caching is disabled")
				return nil
			}
			results, err := c.openResults(false)
			if err != nil {
				return err
			}
			defer results.Close()
			if err := results.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear %s cache: %w", c.cfg.Cache.Backend, err)
			}
			printSuccess(c.out, "Cleared the %s cache", c.cfg.Cache.Backend)
			return nil
		},
	})
	return cmd
}

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show the configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", c.configPath)
			}
			if err := project.SaveAppConfig(c.configPath, model.DefaultAppConfig()); err != nil {
				return err
			}
			printSuccess(c.out, "Wrote default configuration")
			printFile(c.out, c.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, environment overrides included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(c.cfg); err != nil {
				return err
			}
			printDetail(c.out, "# %s", c.configPath)
			_, err := c.out.Write(buf.Bytes())
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
