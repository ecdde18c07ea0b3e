package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TFMV/masquerade/pkg/functions"
)

func newFunctionsCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the generator functions and their parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global, false)
			if err != nil {
				return err
			}
			gens, err := newGenerators(cmd.Context(), cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer gens.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FUNCTION\tPARAMETERS\tDESCRIPTION")
			for _, d := range gens.registry.Functions() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, signature(d), d.Description)
			}
			return tw.Flush()
		},
	}
}

// signature renders parameters as name:kind, marking optional ones with "?".
func signature(d functions.Descriptor) string {
	if len(d.Params) == 0 {
		return "-"
	}
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = p.Name + ":" + p.Kind.String()
		if !p.Required {
			parts[i] += "?"
		}
	}
	return strings.Join(parts, ", ")
}

func newGenerateCommand(global *globalOptions) *cobra.Command {
	var (
		params []string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "generate NAME",
		Short: "Print values produced by a generator function",
		Example: `  masquerade generate randomStringFromPattern --param 'pattern=[a-z]{5}@test\.com' --count 3
  masquerade generate randomDate -p start=2020-01-01 -p end=2021-01-01 -p format=yyyy-MM-dd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive")
			}
			values, err := parseParams(params)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(global, false)
			if err != nil {
				return err
			}
			gens, err := newGenerators(cmd.Context(), cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer gens.Close()

			for i := 0; i < count; i++ {
				v, err := gens.registry.Invoke(cmd.Context(), args[0], values)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Function parameter as name=value (repeatable)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of values to print")
	return cmd
}

// parseParams splits name=value pairs. Values stay strings; the registry
// coerces them to the declared kinds.
func parseParams(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q must be name=value", p)
		}
		out[name] = value
	}
	return out, nil
}
