// Package config loads pausepool settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gferrors "github.com/vnykmshr/pauseflow/pkg/common/errors"
	"github.com/vnykmshr/pauseflow/pkg/common/validation"
	"github.com/vnykmshr/pauseflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/pauseflow/pkg/scheduling/workerpool"
)

const module = "config"

// FileConfig is the layout of a configuration file.
type FileConfig struct {
	Pool     PoolConfig     `yaml:"pool" json:"pool"`
	Timezone string         `yaml:"timezone" json:"timezone"`
	Windows  []WindowConfig `yaml:"windows" json:"windows"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// PoolConfig describes the worker pool.
type PoolConfig struct {
	Name        string `yaml:"name" json:"name"`
	Workers     int    `yaml:"workers" json:"workers"`
	QueueSize   int    `yaml:"queue_size" json:"queue_size"`
	TaskTimeout string `yaml:"task_timeout" json:"task_timeout"`
	Rejection   string `yaml:"rejection" json:"rejection"`
}

// WindowConfig is one recurring pause window.
type WindowConfig struct {
	Name     string `yaml:"name" json:"name"`
	PauseAt  string `yaml:"pause_at" json:"pause_at"`
	ResumeAt string `yaml:"resume_at" json:"resume_at"`
}

// RedisConfig enables fleet-wide pause control when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Key      string `yaml:"key" json:"key"`
	Timeout  string `yaml:"timeout" json:"timeout"`
	// Protocol selects RESP2 or RESP3. Zero uses the client default.
	Protocol int `yaml:"protocol" json:"protocol"`
}

// MetricsConfig exposes Prometheus metrics on Addr when set.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
	Path string `yaml:"path" json:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *FileConfig {
	return &FileConfig{
		Pool: PoolConfig{
			Name:      "pausepool",
			Workers:   runtime.NumCPU(),
			QueueSize: 1000,
			Rejection: "abort",
		},
		Timezone: "Local",
		Redis: RedisConfig{
			Key:     "pauseflow",
			Timeout: "500ms",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// LoadFile reads path on top of Default. The format follows the extension.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return config, nil
}

// Validate checks every section and reports the first invalid field.
func (f *FileConfig) Validate() error {
	if err := validation.ValidatePositive(module, "pool.workers", f.Pool.Workers); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "pool.queue_size", f.Pool.QueueSize); err != nil {
		return err
	}
	if _, err := parseDuration("pool.task_timeout", f.Pool.TaskTimeout); err != nil {
		return err
	}
	if _, ok := workerpool.PolicyByName(f.Pool.Rejection); !ok {
		return gferrors.NewValidationError(module, "pool.rejection", f.Pool.Rejection, "unknown policy").
			WithHint("use abort, discard, caller-runs or block")
	}
	if _, err := f.Location(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(f.Windows))
	for i, w := range f.Windows {
		field := fmt.Sprintf("windows[%d].name", i)
		if err := validation.ValidateNotEmpty(module, field, w.Name); err != nil {
			return err
		}
		if seen[w.Name] {
			return gferrors.NewValidationError(module, field, w.Name, "duplicate window name")
		}
		seen[w.Name] = true
	}

	if _, err := parseDuration("redis.timeout", f.Redis.Timeout); err != nil {
		return err
	}
	if f.Redis.DB < 0 {
		return gferrors.NewValidationError(module, "redis.db", f.Redis.DB, "must be non-negative")
	}
	switch f.Redis.Protocol {
	case 0, 2, 3:
	default:
		return gferrors.NewValidationError(module, "redis.protocol", f.Redis.Protocol, "must be 2 or 3")
	}

	return nil
}

// WorkerPoolConfig converts the pool section into a workerpool.Config.
func (f *FileConfig) WorkerPoolConfig() (workerpool.Config, error) {
	timeout, err := parseDuration("pool.task_timeout", f.Pool.TaskTimeout)
	if err != nil {
		return workerpool.Config{}, err
	}
	policy, ok := workerpool.PolicyByName(f.Pool.Rejection)
	if !ok {
		return workerpool.Config{}, gferrors.NewValidationError(module, "pool.rejection", f.Pool.Rejection, "unknown policy")
	}

	return workerpool.Config{
		Name:        f.Pool.Name,
		WorkerCount: f.Pool.Workers,
		QueueSize:   f.Pool.QueueSize,
		TaskTimeout: timeout,
		Rejection:   policy,
	}, nil
}

// SchedulerWindows returns the configured pause windows.
func (f *FileConfig) SchedulerWindows() []scheduler.Window {
	windows := make([]scheduler.Window, 0, len(f.Windows))
	for _, w := range f.Windows {
		windows = append(windows, scheduler.Window{
			Name:     w.Name,
			PauseAt:  w.PauseAt,
			ResumeAt: w.ResumeAt,
		})
	}
	return windows
}

// Location resolves Timezone. Empty means local time.
func (f *FileConfig) Location() (*time.Location, error) {
	if f.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, gferrors.NewValidationError(module, "timezone", f.Timezone, err.Error())
	}
	return loc, nil
}

// RedisTimeout parses the redis timeout setting.
func (f *FileConfig) RedisTimeout() (time.Duration, error) {
	return parseDuration("redis.timeout", f.Redis.Timeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, gferrors.NewValidationError(module, field, value, "invalid duration").
			WithHint("use a Go duration such as 500ms or 2m")
	}
	if d < 0 {
		return 0, gferrors.NewValidationError(module, field, value, "must be non-negative")
	}
	return d, nil
}
