// The main package for the insider-crawler executable.
package main

import (
	"github.com/marknadsdata/insider-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
