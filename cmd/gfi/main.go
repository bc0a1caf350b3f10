// Package main implements the go-find-imports CLI (gfi).
// It lists the imports of Python modules, reports unused imports and
// prints module dependency graphs.
package main

import (
	"os"

	"github.com/l3aro/go-find-imports/cmd/gfi/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.SetVersionTemplate(`gfi version {{.Version}}
`)
	commands.RootCmd.Version = version

	os.Exit(commands.Execute())
}
