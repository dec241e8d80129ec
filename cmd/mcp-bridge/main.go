// ABOUTME: Entry point for the mcp-bridge tool gateway
// ABOUTME: Serves the webhook/SSE bridge and dispatches tool calls from the CLI

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mcp-bridge/internal/bridge"
	"github.com/2389/mcp-bridge/internal/client"
	"github.com/2389/mcp-bridge/internal/config"
	"github.com/2389/mcp-bridge/internal/dedupe"
	"github.com/2389/mcp-bridge/internal/mcp"
	"github.com/2389/mcp-bridge/internal/store"
	"github.com/2389/mcp-bridge/internal/tool"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                             _          _     _
 _ __ ___   ___ _ __        | |__  _ __(_) __| | __ _  ___
| '_ ' _ \ / __| '_ \ _____ | '_ \| '__| |/ _' |/ _' |/ _ \
| | | | | | (__| |_) |_____|| |_) | |  | | (_| | (_| |  __/
|_| |_| |_|\___| .__/       |_.__/|_|  |_|\__,_|\__, |\___|
               |_|                              |___/
`

const (
	dedupeTTL     = 30 * time.Minute
	dedupeMaxSize = 10000
)

// getConfigPath returns the path to the bridge config file.
// Priority: BRIDGE_CONFIG env var > XDG_CONFIG_HOME/mcp-bridge/bridge.yaml > ~/.config/mcp-bridge/bridge.yaml
func getConfigPath() string {
	if envPath := os.Getenv("BRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bridge.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mcp-bridge", "bridge.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: mcp-bridge <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                Start the bridge server")
		fmt.Println("  tools                Discover backends and list registered tools")
		fmt.Println("  call <tool> [json]   Invoke one tool with JSON arguments")
		fmt.Println("  listen               Block until the next query arrives on the event stream")
		fmt.Println("  history [n]          Show recent persisted events")
		fmt.Println("  health               Check bridge health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "tools":
		err = runTools(ctx)
	case "call":
		err = runCall(ctx)
	case "listen":
		err = runListen(ctx)
	case "history":
		err = runHistory(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Backends: %d\n", len(cfg.Backends))
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	}
	fmt.Println()

	logger.Info("starting mcp-bridge",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"backends", len(cfg.Backends),
	)

	// Discover tool backends
	registry := tool.NewRegistry(mcp.NewClient(logger), tool.NewRESTTransport(logger), logger)
	registry.Initialize(ctx, cfg.Backends)
	logger.Info("tool discovery complete", "tools", len(registry.List()))

	// Optional event ledger
	var recorder bridge.Recorder
	if cfg.Database.Path != "" {
		eventStore, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening event store: %w", err)
		}
		defer eventStore.Close()
		recorder = eventStore
	}

	seen := dedupe.New(dedupeTTL, dedupeMaxSize)
	defer seen.Close()

	broadcaster := bridge.NewBroadcaster(logger)
	defer broadcaster.Close()

	srv, err := bridge.NewServer(bridge.ServerConfig{
		Broadcaster: broadcaster,
		Recorder:    recorder,
		Seen:        seen,
		Trigger:     bridge.NewTrigger(cfg.Trigger.Command, cfg.Trigger.Dir, logger),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating bridge server: %w", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("bridge listening", "addr", cfg.Server.HTTPAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runTools(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	registry := tool.NewRegistry(mcp.NewClient(logger), tool.NewRESTTransport(logger), logger)
	registry.Initialize(ctx, cfg.Backends)

	tools := registry.List()
	if len(tools) == 0 {
		fmt.Println("no tools registered")
		return nil
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, desc := range tools {
		cyan.Printf("%s", desc.Name)
		gray.Printf("  [%s]", desc.Kind)
		fmt.Println()
		if desc.Description != "" {
			fmt.Printf("    %s\n", desc.Description)
		}
	}
	return nil
}

func runCall(ctx context.Context) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: mcp-bridge call <tool> [json-args]")
	}
	name := os.Args[2]

	args := json.RawMessage("{}")
	if len(os.Args) > 3 {
		raw := os.Args[3]
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("arguments must be valid JSON: %s", raw)
		}
		args = json.RawMessage(raw)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	registry := tool.NewRegistry(mcp.NewClient(logger), tool.NewRESTTransport(logger), logger)
	registry.Initialize(ctx, cfg.Backends)

	result, err := registry.Call(ctx, name, args)
	if err != nil {
		return err
	}

	if result.Content.Text != "" {
		fmt.Println(result.Content.Text)
	}
	if len(result.Structured) > 0 {
		fmt.Println(string(result.Structured))
	}
	return nil
}

func runListen(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	consumer := client.NewConsumer("http://"+cfg.Server.HTTPAddr, logger)

	fmt.Fprintln(os.Stderr, "waiting for next query...")
	query, err := consumer.WaitForQuery(ctx)
	if err != nil {
		return err
	}
	fmt.Println(query)
	return nil
}

func runHistory(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("no database configured; set database.path in %s", getConfigPath())
	}

	limit := 20
	if len(os.Args) > 2 {
		if _, err := fmt.Sscanf(os.Args[2], "%d", &limit); err != nil {
			return fmt.Errorf("invalid limit %q", os.Args[2])
		}
	}

	eventStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening event store: %w", err)
	}
	defer eventStore.Close()

	events, err := eventStore.RecentEvents(ctx, limit)
	if err != nil {
		return err
	}

	gray := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)
	for _, ev := range events {
		gray.Printf("%s  ", ev.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		cyan.Printf("%s", ev.Sender)
		fmt.Printf("  %s\n", ev.Text)
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	consumer := client.NewConsumer("http://"+cfg.Server.HTTPAddr, nil)
	status, err := consumer.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println(status)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = &colorHandler{level: level}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{level: h.level, attrs: newAttrs}
}

func (h *colorHandler) WithGroup(_ string) slog.Handler {
	return h
}
