package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/KevoDB/blkview/pkg/block"
)

const (
	CurrentConfigVersion = 1

	// EnvPrefix is prepended to every environment override
	EnvPrefix = "BLKVIEW_"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("config file not found")
)

// Read modes accepted by ReadMode
const (
	ReadModeFile = "file"
	ReadModeMmap = "mmap"
)

type Config struct {
	Version int `json:"version"`

	// Record marker selection. MagicHex wins over Network when set.
	Network  string `json:"network"`
	MagicHex string `json:"magic,omitempty"`

	// File access
	ReadMode        string `json:"read_mode"`
	MaxLeadingBytes int64  `json:"max_leading_bytes"` // 0 scans the whole file for the first marker

	// Record decoding
	MaxPayloadSize uint32 `json:"max_payload_size"` // 0 disables the check
	ZeroFillIsEnd  bool   `json:"zero_fill_is_end"`

	LogLevel string `json:"log_level"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config for mainnet block files
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,

		Network:  "mainnet",
		ReadMode: ReadModeFile,

		MaxPayloadSize: 32 * 1024 * 1024, // 32MB, well above any valid block
		ZeroFillIsEnd:  true,

		LogLevel: "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	if _, err := c.magicLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.ReadMode != ReadModeFile && c.ReadMode != ReadModeMmap {
		return fmt.Errorf("%w: unknown read mode %q", ErrInvalidConfig, c.ReadMode)
	}

	if c.MaxLeadingBytes < 0 {
		return fmt.Errorf("%w: max leading bytes must not be negative", ErrInvalidConfig)
	}

	if c.MaxPayloadSize != 0 && c.MaxPayloadSize < block.FixedBodySize {
		return fmt.Errorf("%w: max payload size must be at least %d bytes", ErrInvalidConfig, block.FixedBodySize)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}

	return nil
}

// Magic resolves the record marker from MagicHex or Network
func (c *Config) Magic() (block.Magic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.magicLocked()
}

func (c *Config) magicLocked() (block.Magic, error) {
	if c.MagicHex != "" {
		return block.ParseMagic(c.MagicHex)
	}
	return block.MagicForNetwork(c.Network)
}

// Decoder builds a record decoder from the decoding settings
func (c *Config) Decoder() (*block.Decoder, error) {
	magic, err := c.Magic()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return &block.Decoder{
		Magic:          magic,
		MaxPayloadSize: c.MaxPayloadSize,
		ZeroFillIsEnd:  c.ZeroFillIsEnd,
	}, nil
}

// LoadFile reads a JSON config. Missing fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveFile writes the configuration as JSON, replacing path atomically
func (c *Config) SaveFile(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// LoadFromEnv applies BLKVIEW_* environment overrides
func (c *Config) LoadFromEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if val := os.Getenv(EnvPrefix + "NETWORK"); val != "" {
		c.Network = val
	}

	if val := os.Getenv(EnvPrefix + "MAGIC"); val != "" {
		c.MagicHex = val
	}

	if val := os.Getenv(EnvPrefix + "READ_MODE"); val != "" {
		c.ReadMode = strings.ToLower(val)
	}

	if val := os.Getenv(EnvPrefix + "MAX_LEADING_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.MaxLeadingBytes = n
		}
	}

	if val := os.Getenv(EnvPrefix + "MAX_PAYLOAD_SIZE"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			c.MaxPayloadSize = uint32(n)
		}
	}

	if val := os.Getenv(EnvPrefix + "ZERO_FILL_IS_END"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.ZeroFillIsEnd = b
		}
	}

	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}
