package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.host.Reload()
			return printOperations(cmd.OutOrStdout(), a.host.Names())
		},
	}
}

// printOperations writes one "INDEX  NAME" line per operation, or a rendered
// markdown table when w is a terminal.
func printOperations(w io.Writer, names []string) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rendered, err := glamour.Render(operationsTable(names), "dark")
		if err == nil {
			_, err = fmt.Fprint(w, rendered)
			return err
		}
	}

	for i, name := range names {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", i, name); err != nil {
			return err
		}
	}
	return nil
}

func operationsTable(names []string) string {
	var b strings.Builder
	b.WriteString("| Index | Operation |\n|---:|---|\n")
	for i, name := range names {
		fmt.Fprintf(&b, "| %d | %s |\n", i, strings.ReplaceAll(name, "|", `\|`))
	}
	return b.String()
}
