package main

import (
	"os"

	"gorecovery/cmd/recoveryctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
