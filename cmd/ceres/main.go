package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/ceres/cmd/ceres/commands"
	"github.com/openfroyo/ceres/pkg/engine"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

// printError writes the cause chain of err, one layer per line.
func printError(err error) {
	for i, line := range engine.Chain(err) {
		if i == 0 {
			fmt.Fprintf(os.Stderr, "error: %s\n", line)
			continue
		}
		fmt.Fprintf(os.Stderr, "caused by: %s\n", line)
	}
}

// setupLogging configures zerolog for structured logging
func setupLogging() {
	level := zerolog.InfoLevel
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}
