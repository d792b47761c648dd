// Package app orchestrates startup: config, logging, storage, and the
// assembly of the decision pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"maker_go/internal/analytics"
	"maker_go/internal/book"
	"maker_go/internal/engine"
	"maker_go/internal/event"
	"maker_go/internal/execution"
	"maker_go/internal/iceberg"
	"maker_go/internal/infra"
	"maker_go/internal/maker"
	"maker_go/internal/pricing"
	"maker_go/internal/regime"
	"maker_go/internal/storage"
	"maker_go/pkg/quant"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	EventStore *storage.EventStore
	Engine     *maker.Engine
	Sequencer  *engine.Sequencer
	Tracker    *analytics.Tracker

	// LastSeq is the highest sequence number already recorded at the store
	// path. Feed workers must continue from here: restarting at zero would
	// collide with the prior session's rows.
	LastSeq uint64

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires the full pipeline. recording=false
// skips the event store (the replayer owns its own database).
func (b *Bootstrap) Initialize(recording bool) error {
	event.Warmup()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	infra.NewLogger(cfg.Logging.Level)
	slog.Info("bootstrapping",
		slog.String("mode", cfg.Trading.Mode),
		slog.String("model", cfg.Trading.Model))

	if recording && cfg.Storage.Enabled {
		mode := strings.ToLower(cfg.Trading.Mode)
		workDir := infra.GetWorkspaceDir()
		dataDir := filepath.Join(workDir, "data", mode)
		if err := infra.EnsureDir(dataDir); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		unlock, err := infra.CreateLockFile(workDir)
		if err != nil {
			return err
		}
		b.unlock = unlock

		store, err := storage.NewEventStore(filepath.Join(dataDir, cfg.Storage.Path))
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		b.EventStore = store

		ctx := context.Background()
		lastSeq, err := store.GetLastSeq(ctx)
		if err != nil {
			return fmt.Errorf("failed to read last seq: %w", err)
		}
		b.LastSeq = lastSeq
		if lastSeq > 0 {
			slog.Info("resuming recorded session", slog.Uint64("last_seq", lastSeq))
		}

		nowMs := int64(quant.Now())
		if err := store.UpsertMetadata(ctx, "session_start", strconv.FormatInt(nowMs, 10), nowMs); err != nil {
			slog.Warn("failed to record session start", slog.Any("error", err))
		}
	}

	b.Engine = BuildEngine(cfg)
	b.Tracker = analytics.NewTracker(cfg.Analytics)
	b.Engine.SetObserver(b.Tracker)

	b.Sequencer = engine.NewSequencer(cfg.Trading.RingSize, b.Engine, b.EventStore)
	b.Sequencer.SetTickTap(b.Tracker)

	return nil
}

// BuildEngine assembles the decision engine from configuration.
func BuildEngine(cfg *infra.Config) *maker.Engine {
	var model pricing.Model
	switch strings.ToLower(cfg.Trading.Model) {
	case "ridge":
		model = pricing.NewOnlineRidge(cfg.Ridge)
	default:
		model = pricing.NewOnlineKalman(cfg.Kalman)
	}

	var sink execution.Sink
	switch strings.ToLower(cfg.Trading.Mode) {
	case "mock":
		sink = execution.NewMockSink()
	default:
		sink = execution.NewPaperSink()
	}

	return maker.NewEngine(
		cfg.Engine,
		model,
		book.NewCalculator(cfg.OBI),
		iceberg.NewDetector(cfg.Iceberg),
		regime.NewMonitor(cfg.Regime),
		sink,
	)
}

// Shutdown releases held resources and reports measured signal quality.
func (b *Bootstrap) Shutdown() {
	if b.Tracker != nil {
		rep := b.Tracker.Summarize()
		if rep.Count > 0 {
			slog.Info("signal quality",
				slog.Int("signals", rep.Count),
				slog.String("avg_mfe_ticks", rep.AvgMFE.StringFixed(2)),
				slog.String("avg_mae_ticks", rep.AvgMAE.StringFixed(2)),
				slog.String("win_rate", rep.WinRate.StringFixed(2)))
		}
	}
	if b.EventStore != nil {
		if err := b.EventStore.Close(); err != nil {
			slog.Warn("event store close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
