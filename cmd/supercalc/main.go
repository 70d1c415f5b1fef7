// Command supercalc is a calculator whose operations are plugins found next to
// the executable.
//
// Usage:
//
//	supercalc list
//	supercalc calc INDEX OP1 OP2
//	supercalc repl
//	supercalc check FILE
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
