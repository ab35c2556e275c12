package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/procureflow/service/registry"
	"go.uber.org/zap"
)

func (a *app) definitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "definition",
		Short: "Work with workflow definition files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate one or more definition files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			definitions := registry.New(registry.WithLogger(a.logger))
			failed := 0
			for _, URL := range args {
				definition, err := definitions.Load(cmd.Context(), URL)
				if err != nil {
					failed++
					a.logger.Debug("invalid definition", zap.String("url", URL), zap.Error(err))
					fmt.Fprintf(a.out, "FAIL %s: %v\n", URL, err)
					continue
				}
				fmt.Fprintf(a.out, "OK   %s: %s/%s, %d stages, terminal %s\n", URL,
					definition.TenantID, definition.RecordType, len(definition.Stages), definition.TerminalStage().Key)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions are invalid", failed, len(args))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "diff FROM TO",
		Short: "Show a unified diff between two definition files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			definitions := registry.New(registry.WithLogger(a.logger))
			from, err := definitions.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			to, err := definitions.Load(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			diff, stats, err := registry.Diff(from, to)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, diff)
			fmt.Fprintf(a.out, "%d insertions(+), %d deletions(-)\n", stats.Added, stats.Removed)
			return nil
		},
	})
	return cmd
}
