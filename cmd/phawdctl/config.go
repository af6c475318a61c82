package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/phawd/internal/config"
)

// phawdctl config.toml key mapping onto config.Default.
type fileConfig struct {
	Segment struct {
		Name       string `toml:"name"`
		Dir        string `toml:"dir"`
		IntervalMS int    `toml:"interval_ms"`
		Unlink     bool   `toml:"unlink_on_exit"`
	} `toml:"segment"`
	Socket struct {
		Host             string `toml:"host"`
		Port             int    `toml:"port"`
		InboundCount     int    `toml:"inbound_count"`
		ConnectTimeoutMS int    `toml:"connect_timeout_ms"`
		ConnectAttempts  int    `toml:"connect_attempts"`
		ReadPollMS       int    `toml:"read_poll_ms"`
		WriteTimeoutMS   int    `toml:"write_timeout_ms"`
		Handshake        bool   `toml:"handshake"`

		Retry struct {
			InitialDelayMS int     `toml:"initial_delay_ms"`
			MaxDelayMS     int     `toml:"max_delay_ms"`
			Multiplier     float64 `toml:"multiplier"`
			Jitter         bool    `toml:"jitter"`
		} `toml:"retry"`
	} `toml:"socket"`
	Log struct {
		Level     string `toml:"level"`
		Timestamp bool   `toml:"timestamp"`
		NoColor   bool   `toml:"no_color"`
	} `toml:"log"`
	Parameters []config.ParameterConfig `toml:"parameters"`
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("load phawd config: %w", err)
	}

	if meta.IsDefined("segment", "name") {
		cfg.Segment.Name = strings.TrimSpace(raw.Segment.Name)
	}
	if meta.IsDefined("segment", "dir") {
		cfg.Segment.Dir = strings.TrimSpace(raw.Segment.Dir)
	}
	if meta.IsDefined("segment", "interval_ms") {
		cfg.Segment.IntervalMS = raw.Segment.IntervalMS
	}
	if meta.IsDefined("segment", "unlink_on_exit") {
		cfg.Segment.Unlink = raw.Segment.Unlink
	}
	if meta.IsDefined("socket", "host") {
		cfg.Socket.Host = strings.TrimSpace(raw.Socket.Host)
	}
	if meta.IsDefined("socket", "port") {
		cfg.Socket.Port = raw.Socket.Port
	}
	if meta.IsDefined("socket", "inbound_count") {
		cfg.Socket.InboundCount = raw.Socket.InboundCount
	}
	if meta.IsDefined("socket", "connect_timeout_ms") {
		cfg.Socket.ConnectTimeoutMS = raw.Socket.ConnectTimeoutMS
	}
	if meta.IsDefined("socket", "connect_attempts") {
		cfg.Socket.ConnectAttempts = raw.Socket.ConnectAttempts
	}
	if meta.IsDefined("socket", "read_poll_ms") {
		cfg.Socket.ReadPollMS = raw.Socket.ReadPollMS
	}
	if meta.IsDefined("socket", "write_timeout_ms") {
		cfg.Socket.WriteTimeoutMS = raw.Socket.WriteTimeoutMS
	}
	if meta.IsDefined("socket", "handshake") {
		cfg.Socket.Handshake = raw.Socket.Handshake
	}
	if meta.IsDefined("socket", "retry", "initial_delay_ms") {
		cfg.Socket.Retry.InitialDelayMS = raw.Socket.Retry.InitialDelayMS
	}
	if meta.IsDefined("socket", "retry", "max_delay_ms") {
		cfg.Socket.Retry.MaxDelayMS = raw.Socket.Retry.MaxDelayMS
	}
	if meta.IsDefined("socket", "retry", "multiplier") {
		cfg.Socket.Retry.Multiplier = raw.Socket.Retry.Multiplier
	}
	if meta.IsDefined("socket", "retry", "jitter") {
		cfg.Socket.Retry.Jitter = raw.Socket.Retry.Jitter
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("parameters") {
		cfg.Parameters = raw.Parameters
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("load phawd config: %w", err)
	}
	return cfg, nil
}
