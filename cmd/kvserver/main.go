package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"

	"kvreplay/internal/backend"
	apihttp "kvreplay/internal/http"
	"kvreplay/internal/logger"
	"kvreplay/pkg/config"
	"kvreplay/pkg/metrics"
	"kvreplay/pkg/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := flag.NewFlagSet("kvserver", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to the YAML config file")
	backendName := fs.StringP("backend", "b", "", "store backend: memory, leveldb, pebble or cql")
	port := fs.IntP("port", "p", 0, "HTTP port")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if fs.Changed("backend") {
		cfg.Store.Backend = *backendName
	}
	if fs.Changed("port") {
		cfg.Server.Port = *port
	}
	if cfg.Store.Backend == config.BackendHTTP {
		fmt.Println("kvserver cannot serve the http backend")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logger, os.Stdout)

	st, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := apihttp.NewServer(store.Instrument(st, metrics.NewStore(reg)), reg, strconv.Itoa(cfg.Server.Port))
	server.SetReadHeaderTimeout(cfg.Server.ReadHeaderTimeout)
	if err := server.Start(); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	slog.Info("kvserver running", "backend", cfg.Store.Backend, "port", cfg.Server.Port)

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		slog.Error("Error stopping server", "error", err)
	}
	slog.Info("kvserver stopped")
}
