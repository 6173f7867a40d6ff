// The main package for the advisor-harvester executable.
package main

import (
	"github.com/bergdata/advisor-harvester/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
