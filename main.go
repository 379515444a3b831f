package main

import (
	"os"

	"github.com/spigell/lumino/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
