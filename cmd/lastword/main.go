// lastword - dead man's switch with scheduled check-in reminders
package main

import (
	"os"

	"github.com/lcrostarosa/lastword/internal/cli"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Execute())
}
