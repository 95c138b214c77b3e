package pelib

import (
	"gomodsec/process"

	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	// DefaultMaxHeaderOffset bounds e_lfanew.
	DefaultMaxHeaderOffset = 0x10000

	// DefaultMaxSections bounds NumberOfSections.
	DefaultMaxSections = 256

	// DefaultMaxTlsCallbacks bounds the TLS callback array.
	DefaultMaxTlsCallbacks = 1024
)

type config struct {
	maxHeaderOffset uint32
	maxSections     uint16
	maxTlsCallbacks int
	imageSize       process.ProcessMemorySize
	log             *logger.Logger
}

// Option is a function that configures Open
type Option func(*config)

// WithMaxHeaderOffset sets the largest accepted e_lfanew.
func WithMaxHeaderOffset(offset uint32) Option {
	return func(c *config) {
		c.maxHeaderOffset = offset
	}
}

// WithMaxSections sets the largest accepted NumberOfSections.
func WithMaxSections(count uint16) Option {
	return func(c *config) {
		c.maxSections = count
	}
}

// WithMaxTlsCallbacks sets how many TLS callback entries are read before giving up on a terminator.
func WithMaxTlsCallbacks(count int) Option {
	return func(c *config) {
		c.maxTlsCallbacks = count
	}
}

// WithImageSize confines every read to [base, base+size). Zero disables the check.
func WithImageSize(size process.ProcessMemorySize) Option {
	return func(c *config) {
		c.imageSize = size
	}
}

// WithLogger replaces the package logger for one PeFile. A nil logger is ignored.
func WithLogger(log *logger.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

var defaultLog = logger.NewLogger("pelib")

func newConfig(opts []Option) config {
	c := config{
		maxHeaderOffset: DefaultMaxHeaderOffset,
		maxSections:     DefaultMaxSections,
		maxTlsCallbacks: DefaultMaxTlsCallbacks,
		log:             defaultLog,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
