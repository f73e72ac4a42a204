package app

import (
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// Config holds all configurable parameters for the application.
type Config struct {
	RootDir  string
	Port     int
	LogLevel string

	EventSize   int
	BufferBytes int // stage capacity for cameras that set no buffer_bytes
	LiveQueue   int

	RateLimiterTTL  time.Duration
	WatcherDebounce time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		RootDir:  "./coop",
		Port:     8080,
		LogLevel: "info",

		EventSize:   500,
		BufferBytes: camera.DefaultBufferBytes,
		LiveQueue:   8,

		RateLimiterTTL:  10 * time.Minute,
		WatcherDebounce: 500 * time.Millisecond,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
