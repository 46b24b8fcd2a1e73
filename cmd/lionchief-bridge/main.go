package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lionchief-bridge/internal/api"
	"lionchief-bridge/internal/ble"
	"lionchief-bridge/internal/config"
	"lionchief-bridge/internal/train"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/lionchief-bridge/config.yaml)")
	macAddress := flag.String("mac", "", "locomotive address (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *macAddress != "" {
		cfg.MACAddress = *macAddress
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	setupLogging(cfg.LogLevel)
	printBanner(cfg)

	// Initialize the BLE adapter
	adapter := ble.NewTinyGoAdapter()
	if err := adapter.Enable(); err != nil {
		log.Fatalf("Failed to enable BLE adapter: %v\n\nCheck that Bluetooth is powered on and this process has access to it.", err)
	}
	slog.Info("BLE adapter ready")

	// Build the coordinator
	opts := train.DefaultOptions()
	opts.ConnectTimeout = cfg.ConnectTimeout()
	opts.SendAttempts = cfg.Link.SendAttempts
	coordinator := train.NewCoordinator(adapter, cfg.MACAddress, cfg.Name, cfg.ServiceUUID, opts)

	// Best-effort initial connect: the bridge loads even if the locomotive
	// is powered off, and connects on the first command instead.
	if err := coordinator.Connect(); err != nil {
		slog.Warn("initial connect failed, will retry on first command", "error", err)
	} else {
		slog.Info("connected to locomotive", "address", cfg.MACAddress, "name", cfg.Name)
	}

	// HTTP control surface
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Mount("/", api.NewHandler(coordinator).Routes())

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: r,
	}

	go func() {
		slog.Info("API listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown", "error", err)
	}
	if err := coordinator.Disconnect(); err != nil {
		slog.Error("coordinator shutdown", "error", err)
	}
	slog.Info("goodbye")
}

// loadConfig loads the config from the specified path, or falls back to the
// default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// setupLogging installs a text slog handler at the configured level.
func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== lionchief-bridge ===")
	fmt.Printf("  Device:  %s (%s)\n", cfg.Name, cfg.MACAddress)
	fmt.Printf("  Service: %s\n", cfg.ServiceUUID)
	fmt.Printf("  Listen:  %s\n", cfg.Listen)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("========================")
}
