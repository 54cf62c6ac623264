// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"

	"github.com/ManuGH/amvhub/internal/config"
	xglog "github.com/ManuGH/amvhub/internal/log"
)

// runSyncCLI performs one gallery refresh and prints the result as JSON.
// It exits non-zero when the refresh did not produce a usable dataset.
func runSyncCLI(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing sync flags: %v\n", err)
		return 1
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "amvhub", Version: version, Output: os.Stderr})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	xglog.Configure(xglog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: version, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runSync(ctx, cfg, os.Stdout)
}

func runSync(ctx context.Context, cfg config.AppConfig, out io.Writer) int {
	logger := xglog.WithComponent("sync")
	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize services: %v\n", err)
		return 1
	}
	defer func() { _ = rt.close(context.WithoutCancel(ctx)) }()

	runCtx, cancel := context.WithTimeout(ctx, refreshTimeout(cfg))
	defer cancel()
	res := rt.syncer.Refresh(runCtx)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		return 1
	}
	if !res.OK {
		return 1
	}
	return 0
}
