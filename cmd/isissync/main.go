// Command isissync reconciles legacy ISIS collections with the article
// catalog.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/isissync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
