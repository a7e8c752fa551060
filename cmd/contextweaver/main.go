// Package main provides the entry point for the contextweaver CLI.
package main

import (
	"fmt"
	"os"

	"github.com/contextweaver/contextweaver/cmd/contextweaver/cmd"
	weaverrors "github.com/contextweaver/contextweaver/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, weaverrors.FormatForCLI(err))
		os.Exit(1)
	}
}
