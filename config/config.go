// Package config loads runtime settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/jacokyle01/live-analysis/engine"
	"github.com/jacokyle01/live-analysis/logging"
)

type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Server  ServerConfig  `yaml:"server"`
	Analyze AnalyzeConfig `yaml:"analyze"`
	Log     LogConfig     `yaml:"log"`
}

type EngineConfig struct {
	Path    string   `yaml:"path"`
	Args    []string `yaml:"args"`
	Threads int      `yaml:"threads"` // 0 = one per CPU
	HashMB  int      `yaml:"hash_mb"`
	MultiPV int      `yaml:"multipv"`

	// Search limits; zero searches until stopped.
	Depth    int           `yaml:"depth"`
	MoveTime time.Duration `yaml:"movetime"`

	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
	WriteInterval time.Duration `yaml:"write_interval"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AnalyzeConfig drives the one-shot analyze command.
type AnalyzeConfig struct {
	TargetDepth  int           `yaml:"target_depth"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Deadline     time.Duration `yaml:"deadline"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Engine: EngineConfig{
			Path:          "stockfish",
			ReadyTimeout:  10 * time.Second,
			WriteInterval: engine.DefaultWriteInterval,
		},
		Server: ServerConfig{Addr: ":8080"},
		Analyze: AnalyzeConfig{
			TargetDepth:  25,
			PollInterval: 250 * time.Millisecond,
			Deadline:     30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: logging.FormatJSON},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Engine.Path == "" {
		errs = append(errs, errors.New("engine.path is required"))
	}
	if c.Engine.Threads < 0 || c.Engine.HashMB < 0 || c.Engine.MultiPV < 0 || c.Engine.Depth < 0 {
		errs = append(errs, errors.New("engine threads, hash_mb, multipv and depth must not be negative"))
	}
	if c.Engine.MoveTime < 0 || c.Engine.ReadyTimeout < 0 || c.Engine.WriteInterval < 0 {
		errs = append(errs, errors.New("engine durations must not be negative"))
	}
	if c.Analyze.TargetDepth < 1 {
		errs = append(errs, errors.New("analyze.target_depth must be positive"))
	}
	if c.Analyze.PollInterval <= 0 {
		errs = append(errs, errors.New("analyze.poll_interval must be positive"))
	}
	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or console", c.Log.Format))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Process returns how to launch the engine binary.
func (c EngineConfig) Process(log zerolog.Logger) engine.ProcessConfig {
	return engine.ProcessConfig{
		Path:          c.Path,
		Args:          c.Args,
		Logger:        log,
		WriteInterval: c.WriteInterval,
	}
}

// Supervisor returns the supervisor settings, resolving a zero thread
// count to the number of CPUs.
func (c EngineConfig) Supervisor(log zerolog.Logger) engine.Config {
	threads := c.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	return engine.Config{
		Logger:       log,
		Threads:      threads,
		HashMB:       c.HashMB,
		MultiPV:      c.MultiPV,
		Limits:       engine.Limits{Depth: c.Depth, MoveTime: c.MoveTime},
		ReadyTimeout: c.ReadyTimeout,
	}
}
