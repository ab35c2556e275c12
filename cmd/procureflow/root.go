package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/afs"
	"github.com/viant/procureflow/internal/envexpr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "PROCUREFLOW"

type app struct {
	out    io.Writer
	config *viper.Viper
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, config: viper.New()}
	rootCmd := &cobra.Command{
		Use:           "procureflow",
		Short:         "Validate and inspect procurement approval workflow definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.SetOut(out)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "engine configuration file (yaml)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	_ = a.config.BindPFlag("config", flags.Lookup("config"))
	_ = a.config.BindPFlag("log-level", flags.Lookup("log-level"))

	rootCmd.AddCommand(a.definitionCmd(), a.policyCmd(), a.configCmd())
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	a.config.SetEnvPrefix(envPrefix)
	a.config.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.config.AutomaticEnv()
	if file := a.config.GetString("config"); file != "" {
		data, err := afs.New().DownloadWithURL(cmd.Context(), file)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", file, err)
		}
		a.config.SetConfigType("yaml")
		if err = a.config.ReadConfig(strings.NewReader(envexpr.Expand(string(data)))); err != nil {
			return fmt.Errorf("failed to decode config %s: %w", file, err)
		}
	}
	level, err := zapcore.ParseLevel(a.config.GetString("log-level"))
	if err != nil {
		return err
	}
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.OutputPaths = []string{"stderr"}
	if a.logger, err = loggerConfig.Build(); err != nil {
		return err
	}
	return nil
}
