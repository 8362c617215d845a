// Command lps compiles, runs and inspects LPS programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/lps/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lps: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
