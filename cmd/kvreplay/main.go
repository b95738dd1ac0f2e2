package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"kvreplay/internal/backend"
	"kvreplay/internal/logger"
	"kvreplay/pkg/metrics"
	"kvreplay/pkg/replay"
	"kvreplay/pkg/store"
)

const (
	exitOK           = 0
	exitError        = 1
	exitUsage        = 2
	exitInconsistent = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	fs := flagSet(&opts)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	opts.scriptPath = fs.Arg(0)

	cfg, err := initConfig(fs, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitError
	}
	logger.Init(cfg.Logger, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	batches, err := readScript(opts.scriptPath)
	if err != nil {
		slog.Error("failed to read script", "file", opts.scriptPath, "error", err)
		return exitError
	}
	slog.Info("script loaded", "file", opts.scriptPath, "n_batches", len(batches))

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Listen != "" {
		serveMetrics(ctx, cfg.Metrics.Listen, reg)
	}

	st, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		return exitError
	}
	defer st.Close()
	st = store.Instrument(st, metrics.NewStore(reg))

	engine := replay.New(st,
		replay.WithLogger(slog.Default()),
		replay.WithFullScan(cfg.Replay.FullScan),
		replay.WithMaxDiff(cfg.Replay.MaxDiff),
		replay.WithMetrics(metrics.NewReplay(reg)),
		replay.WithOutput(os.Stdout),
	)

	summary, err := engine.Run(ctx, replay.Batches(batches))
	if err != nil {
		if errors.Is(err, replay.ErrInconsistent) {
			return exitInconsistent
		}
		slog.Error("replay aborted", "batches_verified", summary.Batches, "error", err)
		return exitError
	}

	fmt.Printf("verified %s batches, %s operations, %s keys in %d buckets (run %s)\n",
		humanize.Comma(int64(summary.Batches)),
		humanize.Comma(int64(summary.Operations)),
		humanize.Comma(int64(summary.Keys)),
		summary.Buckets,
		summary.RunID,
	)
	return exitOK
}
