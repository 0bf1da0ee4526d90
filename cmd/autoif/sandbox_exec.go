package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/autoif/pkg/sandbox"
)

// sandboxExecCmd is the child side of the starlark sandbox runtime. It
// reads one request on stdin and writes one reply on stdout.
var sandboxExecCmd = &cobra.Command{
	Use:    sandbox.ChildCommand,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return sandbox.ServeChild(os.Stdin, os.Stdout)
	},
}
