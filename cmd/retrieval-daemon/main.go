// Package main provides the entry point for the retrieval-daemon CLI.
package main

import (
	"os"

	"github.com/johnbean393/hivecrew-retrieval/cmd/retrieval-daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
