// Package main provides the blocksplan binary.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cory-johannsen/blocks/internal/cli"
)

func main() {
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "blocksplan: %v\n", err)
		os.Exit(1)
	}
}
