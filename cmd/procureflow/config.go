package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/procureflow"
	"gopkg.in/yaml.v3"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect engine configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective engine configuration (defaults, --config file, " + envPrefix + "_* variables)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := a.engineConfig()
			if err != nil {
				return err
			}
			encoded, err := yaml.Marshal(config)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, string(encoded))
			return err
		},
	})
	return cmd
}

// engineConfig merges the configuration sources over procureflow.DefaultConfig.
func (a *app) engineConfig() (*procureflow.Config, error) {
	config := procureflow.DefaultConfig()
	for _, key := range []string{"store.kind", "store.url", "store.dsn", "bulk.workers", "fanOut.workers", "fanOut.tenants"} {
		_ = a.config.BindEnv(key)
	}
	if err := a.config.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
