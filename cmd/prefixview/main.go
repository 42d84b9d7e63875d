// Command prefixview runs a command and shows its output grouped by line
// prefix in an interactive dashboard.
package main

import (
	"os"

	"github.com/Iron-Ham/prefixview/internal/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
