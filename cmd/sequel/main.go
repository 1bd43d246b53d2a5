// Command sequel compiles filter specs to parameterized SQL, validates CUE
// model definitions, and runs lifecycle conformance scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/benarmston/sequel/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
