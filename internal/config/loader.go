package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load, for example
// CHANFLOW_CHANNEL_CAPACITY or CHANFLOW_DATA_COUNTRIES=Peru,Chile.
const EnvPrefix = "CHANFLOW"

// FileSystem abstracts the file operations of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads path into the process environment without overriding
// variables that are already set.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// DefaultConfigPaths are searched in order when no config file is given.
var DefaultConfigPaths = []string{
	"./config.yml",
	"./examples/config.yml",
	"../config.yml",
}

// DefaultEnvPaths are searched in order when no .env file is given.
var DefaultEnvPaths = []string{
	"./.env",
	"../.env",
}

type loaderConfig struct {
	fs         FileSystem
	configFile string
	envFile    string
}

// Option configures Load.
type Option func(*loaderConfig)

// WithFileSystem replaces the local disk, mostly for tests.
func WithFileSystem(fs FileSystem) Option {
	return func(lc *loaderConfig) { lc.fs = fs }
}

// WithConfigFile sets an explicit YAML config file. It must exist.
func WithConfigFile(path string) Option {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile sets an explicit .env file. It must exist.
func WithEnvFile(path string) Option {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML config file, the .env file and the CHANFLOW_* environment.
// The result is validated.
func Load(opts ...Option) (*Config, error) {
	lc := loaderConfig{fs: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	setDefaults(v)

	configFile, err := resolve(lc.fs, lc.configFile, DefaultConfigPaths)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	envFile, err := resolve(lc.fs, lc.envFile, DefaultEnvPaths)
	if err != nil {
		return nil, fmt.Errorf("env file: %w", err)
	}
	if envFile != "" {
		if err := lc.fs.LoadEnv(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Logging.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve returns explicit if set (it must exist), else the first existing
// candidate, else "".
func resolve(fs FileSystem, explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if !fs.Exists(explicit) {
			return "", fmt.Errorf("%s: %w", explicit, os.ErrNotExist)
		}
		return explicit, nil
	}
	for _, path := range candidates {
		if fs.Exists(path) {
			return path, nil
		}
	}
	return "", nil
}

// IsNotFound reports whether err is about a missing explicit file.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// setDefaults registers every key, which also lets AutomaticEnv override
// keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.timestamp", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "")

	v.SetDefault("channel.capacity", 0)
	v.SetDefault("channel.strategy", "block")

	v.SetDefault("pool.workers", 4)
	v.SetDefault("pool.queue_size", 0)

	v.SetDefault("delays.step", 100*time.Millisecond)
	v.SetDefault("delays.item", 50*time.Millisecond)
	v.SetDefault("delays.tick", 200*time.Millisecond)
	v.SetDefault("delays.timeout", time.Second)

	v.SetDefault("data.countries", []string{"Peru", "Chile", "Colombia", "Argentina", "Ecuador"})
	v.SetDefault("data.foods", []string{"Ceviche", "Empanada", "Arepa", "Asado", "Encebollado"})
	v.SetDefault("data.cities", []string{"Lima", "Santiago", "Bogota", "Buenos Aires", "Quito"})
	v.SetDefault("data.students", []string{"Ana", "Luis", "Carla", "Jorge"})
	v.SetDefault("data.subjects", []string{"Math", "Physics", "History", "Chemistry"})

	v.SetDefault("grades.passing_score", 60.0)
	v.SetDefault("grades.failure_threshold", 2)
	v.SetDefault("grades.seed", 42)
}
