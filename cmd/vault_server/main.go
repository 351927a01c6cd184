package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"vaultmcp/pkg/cache"
	"vaultmcp/pkg/obsidian"
	"vaultmcp/pkg/search"
	"vaultmcp/pkg/vault"
)

func main() {
	logLevel := flag.String("logLevel", "INFO", "Default logging level to use")
	logFile := flag.String("logFile", "vault-server.log", "Default log file to log to")
	flag.Parse()

	// stdout carries the MCP transport, logs go to a file
	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		slog.Error("Could not open the server log")
		os.Exit(1)
	}

	defer f.Close()

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: parseLogLevel(*logLevel),
	})
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, using process environment", "error", err)
	}

	apiURL := os.Getenv("OBSIDIAN_API_URL")
	if len(apiURL) == 0 {
		slog.Error("Environment OBSIDIAN_API_URL is not set")
		os.Exit(1)
	}

	apiKey := os.Getenv("OBSIDIAN_API_KEY")
	if len(apiKey) == 0 {
		slog.Error("Environment OBSIDIAN_API_KEY is not set")
		os.Exit(1)
	}

	rebuildInterval := durationEnv("CACHE_REBUILD_INTERVAL", cache.DefaultRebuildInterval)
	apiTimeout := durationEnv("SEARCH_API_TIMEOUT", search.DefaultAPITimeout)

	ctx := context.Background()

	client := obsidian.NewClient(apiURL, apiKey)
	store := cache.NewStore(client, rebuildInterval)

	// The first build is surfaced but not fatal: the live API path still
	// works while the cache stays not-ready, and the periodic rebuild will
	// keep retrying.
	if err := store.Init(ctx); err != nil {
		slog.Error("Initial vault cache build failed, search fallback unavailable until a rebuild succeeds", "error", err)
	}
	store.Start(ctx)
	defer store.Close()

	engine := search.NewEngine(client, store, apiTimeout)
	vaultServer := vault.NewVaultServer(ctx, client, store, engine)

	slog.Info("vault server starting", "api_url", apiURL, "rebuild_interval", rebuildInterval.String())

	if err := server.ServeStdio(vaultServer.McpServer); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration", "env", name, "value", value)
		return fallback
	}
	return d
}
