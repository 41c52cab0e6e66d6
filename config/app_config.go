package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/Luismorlan/qrchain/sensor"
	"github.com/Luismorlan/qrchain/utils"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "QRCHAIN_"

// DefaultSecret is the shared key of the sample codes. Only for testing.
const DefaultSecret = "mi_clave_secreta_32bytes"

const (
	ConsoleScanner = "console"
	dirScannerPref = "dir:"
)

var ErrInvalidConfig = errors.New("config: invalid")

// AppConfig is the configuration of a station.
type AppConfig struct {
	// HMAC key in plain text. Ignored when SecretFile is set.
	Secret string `yaml:"secret" env:"SECRET"`
	// File holding the HMAC key.
	SecretFile string `yaml:"secret_file" env:"SECRET_FILE"`
	// Chain file owned by this station.
	ChainPath string `yaml:"chain_path" env:"CHAIN_PATH"`
	// How long one scan waits before reporting a timeout.
	ScanTimeout time.Duration `yaml:"scan_timeout" env:"SCAN_TIMEOUT"`
	// Where codes come from: "console", or "dir:<path>" to decode images dropped in a directory.
	Scanner string `yaml:"scanner" env:"SCANNER"`
	// Directory for rendered next-token images. Empty disables rendering.
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`
	// Side of rendered images in pixels.
	QRSize int `yaml:"qr_size" env:"QR_SIZE"`
	// Reject plain JSON codes.
	RequireSignature bool `yaml:"require_signature" env:"REQUIRE_SIGNATURE"`
	// Address of the gRPC health endpoint. Empty disables it.
	StatusAddr string `yaml:"status_addr" env:"STATUS_ADDR"`
	// Bounds of the simulated readings.
	Sensor sensor.Ranges `yaml:"sensor" envPrefix:"SENSOR_"`
	// Sensor seed, 0 seeds from the clock.
	SensorSeed int64 `yaml:"sensor_seed" env:"SENSOR_SEED"`
	// Using debug mode will disable the fancy GUI and read commands from stdin.
	DebugMode bool `yaml:"debug_mode" env:"DEBUG_MODE"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() AppConfig {
	return AppConfig{
		Secret:      DefaultSecret,
		ChainPath:   "chain.json",
		ScanTimeout: 60 * time.Second,
		Scanner:     ConsoleScanner,
		OutputDir:   ".",
		QRSize:      256,
		Sensor:      sensor.DefaultRanges(),
	}
}

// Load layers defaults, the YAML file at path (skipped when empty), QRCHAIN_*
// environment variables and the flags that were set, then validates.
func Load(path string, flags *Flags) (AppConfig, error) {
	c := DefaultConfig()
	if path != "" {
		if err := c.mergeYAML(path); err != nil {
			return AppConfig{}, err
		}
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return AppConfig{}, fmt.Errorf("config: parse env: %w", err)
	}
	if flags != nil {
		flags.Apply(&c)
	}
	if err := c.Validate(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}

func (c *AppConfig) mergeYAML(path string) error {
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.UnmarshalStrict(yamlFile, c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Validate reports the first unusable setting.
func (c AppConfig) Validate() error {
	if c.Secret == "" && c.SecretFile == "" {
		return fmt.Errorf("%w: secret or secret_file is required", ErrInvalidConfig)
	}
	if c.ChainPath == "" {
		return fmt.Errorf("%w: chain_path is required", ErrInvalidConfig)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("%w: scan_timeout must be positive, got %v", ErrInvalidConfig, c.ScanTimeout)
	}
	if c.QRSize < 0 {
		return fmt.Errorf("%w: qr_size must not be negative", ErrInvalidConfig)
	}
	if c.Scanner != ConsoleScanner {
		if dir, ok := c.ScanDir(); !ok || dir == "" {
			return fmt.Errorf("%w: scanner must be %q or %q<path>, got %q", ErrInvalidConfig, ConsoleScanner, dirScannerPref, c.Scanner)
		}
	}
	if err := c.Sensor.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ScanDir returns the watched directory of a "dir:<path>" scanner.
func (c AppConfig) ScanDir() (string, bool) {
	if !strings.HasPrefix(c.Scanner, dirScannerPref) {
		return "", false
	}
	return strings.TrimPrefix(c.Scanner, dirScannerPref), true
}

// Key returns the HMAC key, reading SecretFile when set.
func (c AppConfig) Key() ([]byte, error) {
	if c.SecretFile != "" {
		key, err := utils.ReadKeyFile(c.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("config: secret_file: %w", err)
		}
		return key, nil
	}
	if c.Secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidConfig)
	}
	return []byte(c.Secret), nil
}

// UsesDefaultSecret reports whether the key is the published sample key.
func (c AppConfig) UsesDefaultSecret() bool {
	return c.SecretFile == "" && c.Secret == DefaultSecret
}
