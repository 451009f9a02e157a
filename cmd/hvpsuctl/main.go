// hvpsuctl is the command-line client of hvpsud.
package main

import (
	"os"

	"github.com/nerrad567/hvpsu/internal/cli"
)

// Version information - set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
