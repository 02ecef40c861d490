// Package main is the entry point for the feedbackwatch CLI.
package main

import (
	"github.com/joho/godotenv"

	"github.com/blackwell-systems/feedbackwatch/internal/app"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	// A missing .env is fine; it only supplies ANTHROPIC_API_KEY and
	// FEEDBACKWATCH_* overrides.
	_ = godotenv.Load(".env")

	app.SetVersion(version)
	app.Execute()
}
