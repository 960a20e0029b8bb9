package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dledlow/unitystation/internal/config"
	"github.com/dledlow/unitystation/internal/data"
	"github.com/dledlow/unitystation/internal/db"
	"github.com/dledlow/unitystation/internal/gateway"
	"github.com/dledlow/unitystation/internal/spawn"
	"github.com/dledlow/unitystation/internal/vend"
)

const ConfigPath = "config/vendserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("VENDSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("vendserver starting",
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"log_level", cfg.LogLevel)

	if err := data.LoadMachines(cfg.MachinesPath); err != nil {
		return fmt.Errorf("loading machine definitions: %w", err)
	}

	registry := vend.NewRegistry()
	issuer := vend.NewCartridgeIssuer()

	spawner := spawn.NewSpawner(registry)
	spawner.SpawnAll(data.MachineDefs, time.Now())

	gw := gateway.NewServer(registry, issuer, gateway.Config{
		FloodProtection: cfg.FloodProtection,
		MessagesPerSec:  cfg.FloodMessagesPerSec,
		Burst:           cfg.FloodBurst,
	})

	g, ctx := errgroup.WithContext(ctx)

	// Optional vend journal.
	if cfg.JournalEnabled {
		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("migrating journal schema: %w", err)
		}
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to journal database: %w", err)
		}
		defer database.Close()

		sink := db.NewJournalSink(db.NewJournalRepository(database.Pool()), 256)
		for _, m := range registry.All() {
			m.AddSink(sink)
		}
		g.Go(func() error { return sink.Run(ctx) })
		slog.Info("vend journal enabled")
	}

	// Wire presentation broadcast and cartridge despawning.
	for _, m := range registry.All() {
		m.AddSink(gw)
		m.SetDespawner(issuer)
	}

	// One cartridge per machine so operators can restock without
	// extra tooling; serials go to the log.
	for _, m := range registry.All() {
		c := issuer.Issue()
		slog.Info("restock cartridge issued", "machine", m.ID(), "serial", c.Serial())
	}

	g.Go(func() error { return spawner.Run(ctx) })

	mux := http.NewServeMux()
	mux.Handle("/ws", gw.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler: mux,
	}

	g.Go(func() error {
		slog.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
