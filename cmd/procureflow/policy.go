package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/procureflow/policy"
	"github.com/viant/procureflow/service/registry"
	"gopkg.in/yaml.v3"
)

func (a *app) policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect rejection policies",
	}
	var stages []string
	resolve := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Print the effective rejection policy of stages in a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			definition, err := registry.New(registry.WithLogger(a.logger)).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			keys := stages
			if len(keys) == 0 {
				for _, stage := range definition.OrderedStages() {
					keys = append(keys, stage.Key)
				}
			}
			resolved := map[string]any{}
			for _, key := range keys {
				effective, err := policy.Resolve(definition, key)
				if err != nil {
					return err
				}
				resolved[key] = effective
			}
			encoded, err := yaml.Marshal(resolved)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, string(encoded))
			return err
		},
	}
	resolve.Flags().StringSliceVar(&stages, "stage", nil, "stage keys to resolve (default: all)")
	cmd.AddCommand(resolve)
	return cmd
}
