package main

import "github.com/joho/godotenv"

// Build-time variables 'version', 'commit', and 'date' are declared in
// 'root.go' within this package and populated via -ldflags.

// main is the entry point for the doc-pipeline application. It loads an
// optional .env file and invokes the Execute function (defined in root.go)
// which sets up and executes the root Cobra command.
func main() {
	// Missing .env is the common case; only an explicit file is honored.
	_ = godotenv.Load()
	Execute()
}
