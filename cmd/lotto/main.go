package main

import (
	"os"

	"github.com/fjkiani/lotto-machine-sub000/cmd/lotto/commands"
)

// main is the entry point for the lotto-machine CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/lotto [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
