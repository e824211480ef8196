// Command publishing drives the book publishing workflow from the shell.
package main

import (
	"os"

	"github.com/goliatone/go-publishing"
)

var (
	version = "dev"

	moduleBuilder = publishing.New
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
