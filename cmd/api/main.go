package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"docvault/internal/cli"
)

// @title Document Vault API
// @version 1.0
// @description Document catalog with per-document properties and a class-driven approval workflow.
// @BasePath /
func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
