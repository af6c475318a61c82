package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/phawd/internal/block"
	"github.com/danmuck/phawd/internal/param"
	"github.com/danmuck/phawd/internal/wire"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the phawdctl file shape: one segment, one socket peer, and the
// ordered parameter set both of them carry.
type Config struct {
	Segment    SegmentConfig     `toml:"segment"`
	Socket     SocketConfig      `toml:"socket"`
	Parameters []ParameterConfig `toml:"parameters"`
	Log        LogConfig         `toml:"log"`
}

type SegmentConfig struct {
	Name       string `toml:"name"`
	Dir        string `toml:"dir"`
	IntervalMS int    `toml:"interval_ms"`
	Unlink     bool   `toml:"unlink_on_exit"`
}

type SocketConfig struct {
	Host             string          `toml:"host"`
	Port             int             `toml:"port"`
	InboundCount     int             `toml:"inbound_count"`
	ConnectTimeoutMS int             `toml:"connect_timeout_ms"`
	ConnectAttempts  int             `toml:"connect_attempts"`
	ReadPollMS       int             `toml:"read_poll_ms"`
	WriteTimeoutMS   int             `toml:"write_timeout_ms"`
	Handshake        bool            `toml:"handshake"`
	Retry            DialRetryConfig `toml:"retry"`
}

// DialRetryConfig paces repeated dials in phawdctl socket-client. The
// transport itself never retries.
type DialRetryConfig struct {
	InitialDelayMS int     `toml:"initial_delay_ms"`
	MaxDelayMS     int     `toml:"max_delay_ms"`
	Multiplier     float64 `toml:"multiplier"`
	Jitter         bool    `toml:"jitter"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

// ParameterConfig is one positional record. Value is a number for
// FLOAT64/INT64 and a three element array for VEC3_FLOAT64.
type ParameterConfig struct {
	Name  string `toml:"name"`
	Kind  string `toml:"kind"`
	Value any    `toml:"value"`
}

func Default() Config {
	return Config{
		Segment: SegmentConfig{
			Name:       "phawd",
			IntervalMS: 100,
		},
		Socket: SocketConfig{
			Host:             "127.0.0.1",
			Port:             5230,
			ConnectTimeoutMS: 5000,
			ConnectAttempts:  10,
			ReadPollMS:       1,
			WriteTimeoutMS:   1000,
			Retry: DialRetryConfig{
				InitialDelayMS: 250,
				MaxDelayMS:     5000,
				Multiplier:     2,
				Jitter:         true,
			},
		},
		Parameters: []ParameterConfig{
			{Name: "pw_d", Kind: "FLOAT64", Value: 1.213},
			{Name: "pw_s64", Kind: "INT64", Value: int64(12)},
			{Name: "pw_vec3d", Kind: "VEC3_FLOAT64", Value: []any{-1.4, 2.0, 3.0}},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	defaults := cfg.Parameters
	cfg.Parameters = nil
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if len(cfg.Parameters) == 0 {
		cfg.Parameters = defaults
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Segment.Name) == "" {
		return fmt.Errorf("%w: segment name required", ErrInvalidConfig)
	}
	if cfg.Segment.IntervalMS < 0 {
		return fmt.Errorf("%w: segment interval_ms negative", ErrInvalidConfig)
	}
	if cfg.Socket.Port <= 0 || cfg.Socket.Port > 65535 {
		return fmt.Errorf("%w: socket port %d out of range", ErrInvalidConfig, cfg.Socket.Port)
	}
	if cfg.Socket.ConnectAttempts < 0 {
		return fmt.Errorf("%w: socket connect_attempts negative", ErrInvalidConfig)
	}
	if r := cfg.Socket.Retry; r.InitialDelayMS < 0 || r.MaxDelayMS < 0 {
		return fmt.Errorf("%w: socket retry delays negative", ErrInvalidConfig)
	}
	if cfg.Socket.Retry.Multiplier < 1 {
		return fmt.Errorf("%w: socket retry multiplier %v below 1", ErrInvalidConfig, cfg.Socket.Retry.Multiplier)
	}
	if cfg.Socket.InboundCount < 0 {
		return fmt.Errorf("%w: socket inbound_count negative", ErrInvalidConfig)
	}
	if _, err := cfg.Records(); err != nil {
		return err
	}
	return nil
}

// Layout is the slot contract of the configured parameters.
func (c Config) Layout() (param.Layout, error) {
	recs, err := c.Records()
	if err != nil {
		return nil, err
	}
	return param.LayoutOf(recs), nil
}

// Records builds the initial records in file order.
func (c Config) Records() ([]param.Record, error) {
	out := make([]param.Record, 0, len(c.Parameters))
	for i, p := range c.Parameters {
		r, err := p.Record()
		if err != nil {
			return nil, fmt.Errorf("%w: parameters[%d]: %w", ErrInvalidConfig, i, err)
		}
		out = append(out, r)
	}
	if err := param.LayoutOf(out).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return out, nil
}

// SegmentSize is the shared block size for the configured parameters.
func (c Config) SegmentSize() int {
	return block.BlockSize(len(c.Parameters))
}

func (c Config) SegmentInterval() time.Duration {
	return time.Duration(c.Segment.IntervalMS) * time.Millisecond
}

// Wire maps the socket section onto a client config. The outbound frame
// carries the configured parameters; the inbound frame has InboundCount
// slots, or the same count when unset.
func (c Config) Wire() (wire.Config, error) {
	layout, err := c.Layout()
	if err != nil {
		return wire.Config{}, err
	}
	inCount := c.Socket.InboundCount
	if inCount == 0 {
		inCount = len(layout)
	}
	out := wire.DefaultConfig(block.FrameSize(len(layout)), block.FrameSize(inCount))
	out.ConnectTimeout = ms(c.Socket.ConnectTimeoutMS)
	out.ReadPoll = ms(c.Socket.ReadPollMS)
	out.WriteTimeout = ms(c.Socket.WriteTimeoutMS)
	out.Handshake.Enabled = c.Socket.Handshake
	out.Handshake.OutboundLayout = layout
	if inCount == len(layout) {
		out.Handshake.InboundLayout = layout
	}
	return out.WithDefaults(), nil
}

// Delay is the wait after failed dial attempt N (1-based). It starts at
// InitialDelayMS and grows by Multiplier per attempt up to MaxDelayMS. With
// Jitter set, spread in [0,1) scales the result into [0.5, 1.5) of itself.
func (r DialRetryConfig) Delay(attempt int, spread float64) time.Duration {
	d := ms(r.InitialDelayMS)
	limit := ms(r.MaxDelayMS)
	for i := 1; i < attempt && r.Multiplier > 1; i++ {
		d = time.Duration(float64(d) * r.Multiplier)
		if limit > 0 && d >= limit {
			break
		}
	}
	if limit > 0 && d > limit {
		d = limit
	}
	if r.Jitter {
		d = time.Duration(float64(d) * (0.5 + spread))
	}
	return d
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (p ParameterConfig) Record() (param.Record, error) {
	kind, err := param.ParseKind(p.Kind)
	if err != nil {
		return param.Record{}, err
	}
	switch kind {
	case param.KindFloat64:
		v, err := toFloat(p.Value)
		if err != nil {
			return param.Record{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		return param.NewFloat64(p.Name, v)
	case param.KindInt64:
		v, err := toInt(p.Value)
		if err != nil {
			return param.Record{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		return param.NewInt64(p.Name, v)
	case param.KindVector3:
		v, err := toVector3(p.Value)
		if err != nil {
			return param.Record{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		return param.NewVector3(p.Name, v)
	}
	return param.Record{}, fmt.Errorf("%w: %s", param.ErrUnknownKind, kind)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("value %v is not an integer", t)
		}
		return int64(t), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

func toVector3(v any) ([3]float64, error) {
	var out [3]float64
	switch t := v.(type) {
	case nil:
		return out, nil
	case []any:
		if len(t) != 3 {
			return out, fmt.Errorf("vector needs 3 components, got %d", len(t))
		}
		for i, c := range t {
			f, err := toFloat(c)
			if err != nil {
				return out, fmt.Errorf("component %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	case []float64:
		if len(t) != 3 {
			return out, fmt.Errorf("vector needs 3 components, got %d", len(t))
		}
		copy(out[:], t)
		return out, nil
	default:
		return out, fmt.Errorf("value %v (%T) is not a 3 element array", v, v)
	}
}
