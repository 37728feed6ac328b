package transfer

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBufferSize is the read buffer for the transfer connection. One
	// read is one chunk, and every chunk is acknowledged.
	DefaultBufferSize = 64 * 1024
	MaxBufferSize     = 4 * 1024 * 1024
	MinBufferSize     = 512

	DefaultDialTimeout = 30 * time.Second
)

// ErrInvalidConfiguration is returned when configuration validation fails.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds the settings shared by all transfer sessions.
type Config struct {
	BufferSize int `json:"buffer_size" mapstructure:"buffer-size"`
	// DialTimeout bounds connection setup only. Zero means no bound.
	DialTimeout time.Duration `json:"dial_timeout" mapstructure:"dial-timeout"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:  DefaultBufferSize,
		DialTimeout: DefaultDialTimeout,
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.BufferSize < MinBufferSize || c.BufferSize > MaxBufferSize {
		return fmt.Errorf("%w: buffer_size must be between %d and %d", ErrInvalidConfiguration, MinBufferSize, MaxBufferSize)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("%w: dial_timeout cannot be negative", ErrInvalidConfiguration)
	}
	return nil
}
