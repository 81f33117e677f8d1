package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/transport"
)

type simConfig struct {
	Ranks            int
	NX, NY           int
	Moves            int
	Overlap          bool
	Compression      transport.Compression
	BandwidthBPS     int64
	MaxInFlightBytes int64
	HilbertDepth     int
	AutoRenumber     bool
	Seed             int64
	LogLevel         slog.Level
	MetricsAddr      string
	Timeout          time.Duration
}

func defaultConfig() simConfig {
	return simConfig{
		Ranks:        4,
		NX:           32,
		NY:           16,
		Moves:        3,
		Overlap:      true,
		Compression:  transport.CompressionNone,
		HilbertDepth: hilbert.DefaultDepth,
		Seed:         42,
		LogLevel:     slog.LevelInfo,
		Timeout:      time.Minute,
	}
}

type fileConfig struct {
	Ranks            int    `toml:"ranks"`
	NX               int    `toml:"nx"`
	NY               int    `toml:"ny"`
	Moves            int    `toml:"moves"`
	Overlap          bool   `toml:"overlap"`
	Compression      string `toml:"compression"`
	BandwidthBPS     int64  `toml:"bandwidth_bytes_per_sec"`
	MaxInFlightBytes int64  `toml:"max_in_flight_bytes"`
	HilbertDepth     int    `toml:"hilbert_depth"`
	AutoRenumber     bool   `toml:"auto_renumber"`
	Seed             int64  `toml:"seed"`
	LogLevel         string `toml:"log_level"`
	MetricsAddr      string `toml:"metrics_addr"`
	Timeout          string `toml:"timeout"`
}

// loadConfig applies the keys present in the TOML file at path to the
// defaults. An empty path yields the defaults.
func loadConfig(path string) (simConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return simConfig{}, fmt.Errorf("load meshsim config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return simConfig{}, fmt.Errorf("load meshsim config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("ranks") {
		cfg.Ranks = raw.Ranks
	}
	if meta.IsDefined("nx") {
		cfg.NX = raw.NX
	}
	if meta.IsDefined("ny") {
		cfg.NY = raw.NY
	}
	if meta.IsDefined("moves") {
		cfg.Moves = raw.Moves
	}
	if meta.IsDefined("overlap") {
		cfg.Overlap = raw.Overlap
	}
	if meta.IsDefined("compression") {
		c, err := transport.ParseCompression(strings.TrimSpace(raw.Compression))
		if err != nil {
			return simConfig{}, fmt.Errorf("parse compression: %w", err)
		}
		cfg.Compression = c
	}
	if meta.IsDefined("bandwidth_bytes_per_sec") {
		cfg.BandwidthBPS = raw.BandwidthBPS
	}
	if meta.IsDefined("max_in_flight_bytes") {
		cfg.MaxInFlightBytes = raw.MaxInFlightBytes
	}
	if meta.IsDefined("hilbert_depth") {
		cfg.HilbertDepth = raw.HilbertDepth
	}
	if meta.IsDefined("auto_renumber") {
		cfg.AutoRenumber = raw.AutoRenumber
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return simConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return simConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	return cfg, cfg.validate()
}

func (c simConfig) validate() error {
	switch {
	case c.Ranks < 1:
		return fmt.Errorf("ranks must be positive, got %d", c.Ranks)
	case c.NX < 1 || c.NY < 1:
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", c.NX, c.NY)
	case c.Moves < 0:
		return fmt.Errorf("moves must not be negative, got %d", c.Moves)
	case c.BandwidthBPS < 0 || c.MaxInFlightBytes < 0:
		return fmt.Errorf("transport limits must not be negative")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
