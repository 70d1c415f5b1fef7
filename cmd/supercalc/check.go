package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var op1, op2 float64

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Try to load FILE as an operation plugin",
		Long: `Runs FILE through the loader chain without registering it, reports which
loader accepted it and applies the operation once. Use it to test a plugin
before copying it next to the executable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.OutOrStdout(), args[0], op1, op2)
		},
	}
	cmd.Flags().Float64Var(&op1, "op1", 3, "first operand for the trial application")
	cmd.Flags().Float64Var(&op2, "op2", 4, "second operand for the trial application")
	return cmd
}

func (a *app) check(w io.Writer, path string, op1, op2 float64) error {
	inst, ok := a.chain.TryLoad(path)
	if !ok {
		return fmt.Errorf("%s is not an operation plugin (run with --log-level debug for details)", path)
	}
	op := inst.Operation()

	fmt.Fprintf(w, "Name:   %s\n", op.Name())
	fmt.Fprintf(w, "Loader: %s\n", inst.Loader())
	fmt.Fprintf(w, "Apply(%s, %s) = %s\n",
		strconv.FormatFloat(op1, 'g', -1, 64),
		strconv.FormatFloat(op2, 'g', -1, 64),
		strconv.FormatFloat(op.Apply(op1, op2), 'g', -1, 64))
	return nil
}
