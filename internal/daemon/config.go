// Package daemon loads the gpusizer configuration and runs the web server.
package daemon

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// HomeEnv overrides the configuration directory.
const HomeEnv = "GPUSIZER_HOME"

// Config is the on-disk configuration (config.toml).
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Defaults DefaultsConfig `toml:"defaults"`
	Output   OutputConfig   `toml:"output"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Sweep    SweepConfig    `toml:"sweep"`
}

// ServerConfig configures `gpusizer serve`.
type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// DefaultsConfig holds the estimation inputs used when flags are omitted.
type DefaultsConfig struct {
	NumGPU      int      `toml:"num_gpu"`
	Prompt      int      `toml:"prompt"`
	Response    int      `toml:"response"`
	Concurrency int      `toml:"concurrency"`
	WeightBytes float64  `toml:"weight_bytes"`
	KVBytes     float64  `toml:"kv_bytes"`
	Models      []string `toml:"models"`
	GPUs        []string `toml:"gpus"`
}

// OutputConfig controls CLI exports.
type OutputConfig struct {
	Dir string `toml:"dir"`
	CSV bool   `toml:"csv"`
}

// CatalogConfig points at replacement catalog files. Empty keeps the built-ins.
type CatalogConfig struct {
	ModelsFile string `toml:"models_file"`
	GPUsFile   string `toml:"gpus_file"`
}

// SweepConfig bounds grid evaluation concurrency.
type SweepConfig struct {
	Workers int `toml:"workers"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	w := domain.DefaultWorkload()
	p := domain.DefaultPrecision()
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Defaults: DefaultsConfig{
			NumGPU:      1,
			Prompt:      w.PromptTokens,
			Response:    w.ResponseTokens,
			Concurrency: w.Concurrency,
			WeightBytes: p.WeightBytes,
			KVBytes:     p.KVBytes,
		},
		Output: OutputConfig{
			Dir: "out",
			CSV: true,
		},
		Sweep: SweepConfig{
			Workers: 4,
		},
	}
}

// Workload returns the configured workload shape.
func (d DefaultsConfig) Workload() domain.Workload {
	return domain.Workload{PromptTokens: d.Prompt, ResponseTokens: d.Response, Concurrency: d.Concurrency}
}

// Precision returns the configured precision.
func (d DefaultsConfig) Precision() domain.PrecisionSpec {
	return domain.PrecisionSpec{WeightBytes: d.WeightBytes, KVBytes: d.KVBytes}
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Home returns the configuration directory: $GPUSIZER_HOME or ~/.gpusizer.
func Home() string {
	if env := os.Getenv(HomeEnv); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gpusizer")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteConfig encodes cfg as TOML.
func WriteConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
