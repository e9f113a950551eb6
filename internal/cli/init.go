package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkgraph/internal/paths"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: "Write a default config.yaml if none exists, then attach the configured\n" +
			"backend once so its schema is migrated.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			cfg := defaultConfigFile()
			cfg.Backend = a.config.GetString(cfgKeyBackend)
			cfg.DSN = a.config.GetString(cfgKeyDSN)
			cfg.DataDir = a.flags.dataDir
			wrote, err := writeConfigIfMissing(configDir, cfg)
			if err != nil {
				return err
			}

			storeCfg, err := a.storeConfig()
			if err != nil {
				return err
			}
			// Attaching migrates the schema.
			if err := a.withStore(func(types.Store) error { return nil }); err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}

			result := map[string]any{
				"config_dir":     configDir,
				"config_written": wrote,
				"backend":        storeCfg.Backend,
				"data_dir":       storeCfg.DataDir,
			}
			return a.render(cmd, result, func(w io.Writer) error {
				fmt.Fprintf(w, "linkgraph initialized (%s backend)\n", storeCfg.Backend)
				return nil
			})
		},
	}
}
