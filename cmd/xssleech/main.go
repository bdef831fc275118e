package main

import (
	"fmt"
	"os"

	"github.com/0x6d61/xssleech/internal/cli"
	"github.com/0x6d61/xssleech/internal/observability"
)

func main() {
	err := cli.Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
