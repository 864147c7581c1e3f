package options

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v2"

	"github.com/suborbital/e2bridge/foundation/scheduler"
	"github.com/suborbital/e2bridge/foundation/tracing"
	"github.com/suborbital/e2bridge/heap/memory"
)

const (
	e2bridgeEnvPrefix = "E2BRIDGE_"
)

// Options defines options for the bridge.
type Options struct {
	logger zerolog.Logger

	ConfigFile        string         `env:"CONFIG_FILE" yaml:"-"`
	PoolSize          int            `env:"POOL_SIZE,default=1" yaml:"poolSize"`
	AutoscaleMax      int            `env:"AUTOSCALE_MAX,default=1" yaml:"autoscaleMax"`
	JobTimeoutSeconds int            `env:"JOB_TIMEOUT_SECONDS,default=0" yaml:"jobTimeoutSeconds"`
	HeapBackend       string         `env:"HEAP_BACKEND,default=wazero" yaml:"heapBackend"`
	HeapInitialPages  uint32         `env:"HEAP_INITIAL_PAGES,default=1" yaml:"heapInitialPages"`
	HeapMaxPages      uint32         `env:"HEAP_MAX_PAGES,default=1024" yaml:"heapMaxPages"`
	LogLevel          string         `env:"LOG_LEVEL,default=info" yaml:"logLevel"`
	TracerConfig      tracing.Config `env:",prefix=TRACER_" yaml:"tracer"`
}

// Modifier defines options for the bridge.
type Modifier func(*Options)

// NewWithModifiers reads options from the environment, overlays the config
// file named by E2BRIDGE_CONFIG_FILE if any, and applies mods in order.
func NewWithModifiers(mods ...Modifier) (*Options, error) {
	return Load(context.Background(), envconfig.OsLookuper(), mods...)
}

// Load is NewWithModifiers reading from an arbitrary lookuper
func Load(ctx context.Context, lookuper envconfig.Lookuper, mods ...Modifier) (*Options, error) {
	opts := &Options{}

	if err := envconfig.ProcessWith(ctx, opts, envconfig.PrefixLookuper(e2bridgeEnvPrefix, lookuper)); err != nil {
		return nil, errors.Wrap(err, "failed to Process environment config")
	}

	if opts.ConfigFile != "" {
		fileMod, err := FromFile(opts.ConfigFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to FromFile")
		}

		mods = append([]Modifier{fileMod}, mods...)
	}

	for _, mod := range mods {
		mod(opts)
	}

	if err := opts.finalize(); err != nil {
		return nil, err
	}

	return opts, nil
}

// FromFile reads a YAML file and returns a Modifier overlaying the keys it sets.
func FromFile(path string) (Modifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to ReadFile")
	}

	// check the file once up front so the Modifier cannot fail
	if err := yaml.UnmarshalStrict(data, &Options{}); err != nil {
		return nil, errors.Wrapf(err, "failed to Unmarshal %s", path)
	}

	mod := func(opts *Options) {
		_ = yaml.Unmarshal(data, opts)
	}

	return mod, nil
}

// UseLogger sets the logger to be used.
func UseLogger(logger zerolog.Logger) Modifier {
	return func(opts *Options) {
		opts.logger = logger
		opts.LogLevel = ""
	}
}

// PoolSize sets the number of worker goroutines per operation.
func PoolSize(size int) Modifier {
	return func(opts *Options) {
		opts.PoolSize = size
	}
}

// JobTimeoutSeconds sets the asynchronous job timeout, 0 for none.
func JobTimeoutSeconds(secs int) Modifier {
	return func(opts *Options) {
		opts.JobTimeoutSeconds = secs
	}
}

// HeapBackend sets the linear memory backend.
func HeapBackend(backend string) Modifier {
	return func(opts *Options) {
		opts.HeapBackend = backend
	}
}

// HeapPages sets the initial and maximum heap size in pages.
func HeapPages(initial, max uint32) Modifier {
	return func(opts *Options) {
		opts.HeapInitialPages = initial
		opts.HeapMaxPages = max
	}
}

// LogLevel sets the log level.
func LogLevel(level string) Modifier {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// Logger returns the options' logger
func (o *Options) Logger() zerolog.Logger {
	return o.logger
}

// MemoryConfig returns the heap's memory configuration
func (o *Options) MemoryConfig() memory.Config {
	return memory.Config{
		InitialPages: o.HeapInitialPages,
		MaxPages:     o.HeapMaxPages,
	}
}

// WorkerOptions returns the options every operation's worker is started with
func (o *Options) WorkerOptions() []scheduler.Option {
	opts := []scheduler.Option{
		scheduler.PoolSize(o.PoolSize),
		scheduler.TimeoutSeconds(o.JobTimeoutSeconds),
	}

	if o.AutoscaleMax > o.PoolSize {
		opts = append(opts, scheduler.Autoscale(o.AutoscaleMax))
	}

	return opts
}

// finalize validates the options and builds the default logger if needed.
func (o *Options) finalize() error {
	if o.PoolSize < 1 {
		return errors.Errorf("pool size must be at least 1, got %d", o.PoolSize)
	}

	if o.JobTimeoutSeconds < 0 {
		return errors.Errorf("job timeout must not be negative, got %d", o.JobTimeoutSeconds)
	}

	if o.HeapMaxPages != 0 && o.HeapMaxPages < o.HeapInitialPages {
		return errors.Errorf("heap max pages %d is less than initial pages %d", o.HeapMaxPages, o.HeapInitialPages)
	}

	known := false
	for _, b := range memory.Backends() {
		if b == o.HeapBackend {
			known = true
		}
	}

	if !known {
		return errors.Wrapf(memory.ErrUnknownBackend, "%q, available: %s", o.HeapBackend, strings.Join(memory.Backends(), ", "))
	}

	if o.LogLevel != "" {
		level, err := zerolog.ParseLevel(o.LogLevel)
		if err != nil {
			return errors.Wrap(err, "failed to ParseLevel")
		}

		o.logger = zerolog.New(os.Stderr).With().
			Timestamp().
			Str("component", "e2bridge").
			Logger().
			Level(level)
	}

	return nil
}
