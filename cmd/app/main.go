package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"maker_go/internal/app"
	"maker_go/internal/infra"
	"maker_go/internal/infra/feedws"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof server (localhost only).
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System bootstrapping.
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(true); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	// 3. Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start the hotpath loop.
	go bootstrap.Sequencer.Run(ctx)
	slog.InfoContext(ctx, "sequencer (hotpath) started")

	// 5. Feed gateway.
	if cfg.Feed.WSURL != "" {
		// Continue the sequence from any prior recording at this path.
		nextSeq := bootstrap.LastSeq
		worker := feedws.NewWorker(feedws.Config{
			URL:        cfg.Feed.WSURL,
			Symbol:     cfg.Feed.Symbol,
			Aux1Symbol: cfg.Feed.Aux1Symbol,
			Aux2Symbol: cfg.Feed.Aux2Symbol,
			RiskSymbol: cfg.Feed.RiskSymbol,
			DomDepth:   cfg.Feed.DomDepth,
		}, bootstrap.Sequencer, &nextSeq)
		if err := worker.Connect(ctx); err != nil {
			slog.Error("failed to connect feed", slog.Any("error", err))
		}
		defer worker.Disconnect()
		slog.InfoContext(ctx, "feed worker started", slog.String("symbol", cfg.Feed.Symbol))
	} else {
		slog.Warn("no feed URL configured, running idle")
	}

	slog.InfoContext(ctx, "system operational, press Ctrl+C to exit")
	<-ctx.Done()

	slog.Info("shutting down",
		slog.Uint64("processed", bootstrap.Sequencer.GetStats().Processed),
		slog.Uint64("dropped", bootstrap.Sequencer.GetStats().Dropped))
}
