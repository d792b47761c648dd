package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"maker_go/backtest"
	"maker_go/internal/analytics"
	"maker_go/internal/app"
	"maker_go/internal/engine"
	"maker_go/internal/infra"
)

func main() {
	dbPath := flag.String("db", "", "path to a recorded events.db")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -db <path/to/events.db>")
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	infra.NewLogger(cfg.Logging.Level)

	// Replay wires the same pipeline live trading uses; only the event
	// source differs. No recording store: the session is already on disk.
	eng := app.BuildEngine(cfg)
	tracker := analytics.NewTracker(cfg.Analytics)
	eng.SetObserver(tracker)

	seq := engine.NewSequencer(cfg.Trading.RingSize, eng, nil)
	seq.SetTickTap(tracker)

	rep, err := backtest.NewReplayer(*dbPath)
	if err != nil {
		slog.Error("failed to open session", slog.Any("error", err))
		os.Exit(1)
	}
	defer rep.Close()

	n, err := rep.RunReplay(context.Background(), seq)
	if err != nil {
		slog.Error("replay failed", slog.Any("error", err))
		os.Exit(1)
	}

	report := tracker.Summarize()
	slog.Info("replay complete",
		slog.Int("events", n),
		slog.Int("signals", report.Count))
	if report.Count > 0 {
		slog.Info("signal quality",
			slog.String("avg_mfe_ticks", report.AvgMFE.StringFixed(2)),
			slog.String("avg_mae_ticks", report.AvgMAE.StringFixed(2)),
			slog.String("win_rate", report.WinRate.StringFixed(2)))
	}

	snap := eng.GetSnapshot()
	slog.Info("final engine state",
		slog.Float64("fair", snap.Fair),
		slog.Float64("spread_ticks", snap.SpreadTicks),
		slog.Float64("vol_ratio", snap.VolRatio),
		slog.Bool("safe", snap.Safe))
}
