package main

import (
	"os"

	"github.com/treetab/treetab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
