// Package config loads obstacle-mcp settings from the environment.
//
// Every variable is prefixed with OBSTACLE_MCP_. Values may also come from a
// .env file; variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ironsheep/obstacle-mcp/internal/controller"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
)

// Prefix is prepended to every variable name.
const Prefix = "OBSTACLE_MCP_"

// Config holds the process settings.
type Config struct {
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	IntervalMs  int `validate:"gte=50,lte=60000"`
	Sensitivity int `validate:"gte=0,lte=100"`

	FrameDir      string `validate:"omitempty,dir"`
	FrameMaxWidth int    `validate:"gte=0"`

	Voice     bool
	Vibration bool
	Volume    string `validate:"oneof=high medium low"`

	WSAddr       string `validate:"omitempty,hostname_port"`
	OverlayColor string `validate:"hexcolor"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel:     "info",
		IntervalMs:   controller.DefaultIntervalMs,
		Sensitivity:  50,
		Voice:        true,
		Vibration:    true,
		Volume:       string(feedback.VolumeHigh),
		OverlayColor: "#ff0000",
	}
}

// Load reads envFile (if it exists) into the environment and then builds
// the configuration from the environment. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates the configuration using lookup to read
// variables.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.str("LOG_LEVEL", &cfg.LogLevel)
	p.str("LOG_FILE", &cfg.LogFile)
	p.intVar("INTERVAL_MS", &cfg.IntervalMs)
	p.intVar("SENSITIVITY", &cfg.Sensitivity)
	p.str("FRAME_DIR", &cfg.FrameDir)
	p.intVar("FRAME_MAX_WIDTH", &cfg.FrameMaxWidth)
	p.boolVar("VOICE", &cfg.Voice)
	p.boolVar("VIBRATION", &cfg.Vibration)
	p.str("VOLUME", &cfg.Volume)
	p.str("WS_ADDR", &cfg.WSAddr)
	p.str("OVERLAY_COLOR", &cfg.OverlayColor)

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Volume = strings.ToLower(cfg.Volume)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Preferences returns the feedback settings.
func (c *Config) Preferences() feedback.Preferences {
	return feedback.Preferences{
		VoiceEnabled:     c.Voice,
		VibrationEnabled: c.Vibration,
		Volume:           feedback.Volume(c.Volume),
	}
}

// SessionOptions returns the options used for sessions started without
// explicit parameters.
func (c *Config) SessionOptions() controller.Options {
	return controller.Options{IntervalMs: c.IntervalMs, Sensitivity: c.Sensitivity}
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(name string) (string, bool) {
	v, ok := p.lookup(Prefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(name string, dst *string) {
	if v, ok := p.get(name); ok {
		*dst = v
	}
}

func (p *parser) intVar(name string, dst *int) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", Prefix, name, err))
		return
	}
	*dst = n
}

func (p *parser) boolVar(name string, dst *bool) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", Prefix, name, err))
		return
	}
	*dst = b
}
