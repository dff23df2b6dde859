// The main package for the chartscrawler executable.
package main

import (
	"github.com/playerstats/steamcharts-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
