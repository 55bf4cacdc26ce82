package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"meetingindex.app/internal/app"
	"meetingindex.app/pkg/logger"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found or error loading it")
	}

	setupLogging()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "sync":
		runSync(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if value := os.Getenv("LOG_LEVEL"); value != "" {
		if err := level.UnmarshalText([]byte(value)); err != nil {
			level = slog.LevelInfo
		}
	}
	slog.SetDefault(logger.NewWithLevel(level).Logger)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: app <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  sync    fetch all sources and rebuild the meeting index")
	fmt.Fprintln(os.Stderr, "  serve   serve the query API over the committed index")
}

func runSync(args []string) {
	flags := flag.NewFlagSet("sync", flag.ExitOnError)
	_ = flags.Parse(args)

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer closeApplication(application)

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := application.Sync(ctx)
	if err != nil {
		slog.Error("Sync failed", "error", err)
		os.Exit(1)
	}
	if !summary.Committed {
		os.Exit(1)
	}
}

func runServe(args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	address := flags.String("address", "", "listen address (overrides SERVER_ADDRESS)")
	port := flags.Int("port", 0, "listen port (overrides SERVER_PORT)")
	_ = flags.Parse(args)

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer closeApplication(application)

	if *address != "" {
		application.Config().Server.Address = *address
	}
	if *port != 0 {
		application.Config().Server.Port = *port
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := application.StartServer(ctx); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func closeApplication(application *app.Application) {
	if err := application.Shutdown(); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
