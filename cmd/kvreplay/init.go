package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/config"
	"kvreplay/pkg/script"
)

type options struct {
	configPath string
	backend    string
	fullScan   bool
	noReset    bool
	scriptPath string
}

func flagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("kvreplay", flag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	fs.StringVarP(&opts.backend, "backend", "b", "", "store backend: memory, http, leveldb, pebble or cql")
	fs.BoolVar(&opts.fullScan, "full-scan", false, "re-read the whole keyspace after every batch")
	fs.BoolVar(&opts.noReset, "no-reset", false, "keep the existing store content instead of emptying it first")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: kvreplay [flags] <script>")
		fs.PrintDefaults()
	}
	return fs
}

// initConfig загружает конфиг и накладывает поверх него флаги командной строки.
func initConfig(fs *flag.FlagSet, opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("backend") {
		cfg.Store.Backend = opts.backend
	}
	if fs.Changed("full-scan") {
		cfg.Replay.FullScan = opts.fullScan
	}
	if fs.Changed("no-reset") {
		cfg.Store.Reset = !opts.noReset
	}

	return cfg, cfg.Validate()
}

// readScript decodes the whole script up front so that a malformed line
// aborts the run before anything is written to the store.
func readScript(path string) ([]batch.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return script.NewReader(f).ReadAll()
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	slog.Info("metrics server started", "addr", addr)
}
