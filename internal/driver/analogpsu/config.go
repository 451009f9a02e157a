package analogpsu

import "time"

// Config holds USB transport settings.
type Config struct {
	Timeout     time.Duration // per bulk transfer
	OutEndpoint uint8
	InEndpoint  uint8
	Interface   int
	Attempts    int           // bulk transfer attempts before giving up
	RetryDelay  time.Duration // pause between attempts
}

// Option is a functional option for configuring the transport
type Option func(*Config) error

// DefaultConfig returns the settings the board firmware expects
func DefaultConfig() Config {
	return Config{
		Timeout:     100 * time.Millisecond,
		OutEndpoint: 0x01,
		InEndpoint:  0x81,
		Interface:   0,
		Attempts:    10,
		RetryDelay:  10 * time.Millisecond,
	}
}

// WithTimeout sets the per-transfer timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < time.Millisecond {
			return ErrInvalidConfig
		}
		c.Timeout = timeout
		return nil
	}
}

// WithEndpoints sets the bulk OUT and IN endpoint addresses
func WithEndpoints(out, in uint8) Option {
	return func(c *Config) error {
		if out&0x80 != 0 || in&0x80 == 0 {
			return ErrInvalidConfig
		}
		c.OutEndpoint = out
		c.InEndpoint = in
		return nil
	}
}

// WithInterface sets the USB interface number to claim
func WithInterface(n int) Option {
	return func(c *Config) error {
		if n < 0 || n > 255 {
			return ErrInvalidConfig
		}
		c.Interface = n
		return nil
	}
}

// WithRetries sets the number of transfer attempts and the pause between them
func WithRetries(attempts int, delay time.Duration) Option {
	return func(c *Config) error {
		if attempts < 1 || delay < 0 {
			return ErrInvalidConfig
		}
		c.Attempts = attempts
		c.RetryDelay = delay
		return nil
	}
}
