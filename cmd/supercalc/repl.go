package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const replHelp = `commands:
  INDEX OP1 OP2   apply operation INDEX
  list            show operations
  reload          rescan plugins
  quit            exit
`

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive calculator session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.host.Reload()
			in := cmd.InOrStdin()
			prompt := false
			if f, ok := in.(*os.File); ok {
				prompt = term.IsTerminal(int(f.Fd()))
			}
			return a.repl(in, cmd.OutOrStdout(), prompt)
		},
	}
}

// repl runs until quit or end of input. Bad input is reported and the loop
// continues.
func (a *app) repl(in io.Reader, out io.Writer, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprint(out, replHelp)
		case "list":
			if err := printOperations(out, a.host.Names()); err != nil {
				return err
			}
		case "reload":
			stats := a.host.Reload()
			fmt.Fprintf(out, "%d operations (%d plugins, %d modules retained)\n",
				stats.Entries, stats.Loaded, len(a.chain.LoadedModules()))
		default:
			if len(fields) != 3 {
				fmt.Fprint(out, replHelp)
				continue
			}
			if err := calculate(out, a.host, fields); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}
