package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/joncooperworks/supercalc/executor"
	"github.com/joncooperworks/supercalc/registry"
	"github.com/spf13/cobra"
)

func newCalcCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc INDEX OP1 OP2",
		Short: "Apply the operation at INDEX to OP1 and OP2",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.host.Reload()
			return calculate(cmd.OutOrStdout(), a.host, args)
		},
	}
	// Flags end at INDEX so that negative operands are not read as flags.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// calculate parses INDEX OP1 OP2 and prints the result.
func calculate(w io.Writer, host *executor.Host, args []string) error {
	sel, op1, op2, err := parseCalculation(args)
	if err != nil {
		return err
	}

	result, err := host.Calculate(sel, op1, op2)
	if errors.Is(err, executor.ErrNoOperation) {
		return fmt.Errorf("no operation at index %s", args[0])
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s = %s\n", result.Name, strconv.FormatFloat(result.Value, 'g', -1, 64))
	return err
}

func parseCalculation(args []string) (registry.Selection, float64, float64, error) {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return registry.NoSelection, 0, 0, fmt.Errorf("invalid index %q: %w", args[0], err)
	}
	op1, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return registry.NoSelection, 0, 0, fmt.Errorf("invalid operand %q: %w", args[1], err)
	}
	op2, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return registry.NoSelection, 0, 0, fmt.Errorf("invalid operand %q: %w", args[2], err)
	}
	return registry.FromWidgetIndex(index), op1, op2, nil
}
