// Package main provides the entry point for the maktabamcp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/maktabalab/maktabamcp/cmd/maktabamcp/cmd"
	maktabaerrors "github.com/maktabalab/maktabamcp/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, maktabaerrors.FormatForUser(err, os.Getenv("MAKTABAMCP_DEBUG") != ""))
		os.Exit(1)
	}
}
