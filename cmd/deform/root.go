package main

import (
	"log/slog"
	"os"

	"github.com/chazu/deform/pkg/config"
	"github.com/spf13/cobra"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "deform",
		Short: "Mesh indexing and handle-based deformation requests",
		Long: `deform deduplicates triangle soups into indexed meshes and back, and
builds the request a deformation solver consumes from a mesh plus a set of
handles placed by a script.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if c.verbose {
				level = slog.LevelDebug
			}
			c.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log.Debug("config loaded", "path", c.configPath, "model", cfg.Model, "mesh_cells", cfg.MeshCells)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("DEFORM_CONFIG"), "TOML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newIndexCmd(c),
		newUnindexCmd(c),
		newRequestCmd(c),
		newConfigCmd(c),
	)
	return root
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.cfg.Encode(cmd.OutOrStdout())
		},
	}
}
