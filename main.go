// The main package for the locationscout executable.
package main

import (
	"github.com/fleetops/locationscout/cmd"
)

func main() {
	cmd.Execute()
}
