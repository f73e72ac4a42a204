package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sophialabs/coopwatch/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.RootDir, "root", cfg.RootDir, "root directory holding cameras/*.yaml")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.EventSize, "event-size", cfg.EventSize, "number of sampler and session events to keep")
	flag.IntVar(&cfg.BufferBytes, "buffer-bytes", cfg.BufferBytes, "frame stage capacity for cameras that set none")
	flag.IntVar(&cfg.LiveQueue, "live-queue", cfg.LiveQueue, "frames buffered per live feed before dropping")
	flag.DurationVar(&cfg.WatcherDebounce, "watch-debounce", cfg.WatcherDebounce, "delay before reloading changed camera files")
	flag.Parse()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
