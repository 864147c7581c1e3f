package options

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suborbital/e2bridge/foundation/tracing"
	"github.com/suborbital/e2bridge/heap/memory"
)

func TestDefaults(t *testing.T) {
	opts, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 1, opts.PoolSize)
	assert.Equal(t, 0, opts.JobTimeoutSeconds)
	assert.Equal(t, memory.DefaultBackend, opts.HeapBackend)
	assert.Equal(t, memory.Config{InitialPages: 1, MaxPages: 1024}, opts.MemoryConfig())
	assert.Equal(t, tracing.ExporterNone, opts.TracerConfig.Type)
	assert.Equal(t, "e2bridge", opts.TracerConfig.ServiceName)
	assert.Equal(t, zerolog.InfoLevel, opts.Logger().GetLevel())
	assert.Len(t, opts.WorkerOptions(), 2)
}

func TestEnvironment(t *testing.T) {
	opts, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"E2BRIDGE_POOL_SIZE":                 "4",
		"E2BRIDGE_AUTOSCALE_MAX":             "8",
		"E2BRIDGE_HEAP_BACKEND":              "slice",
		"E2BRIDGE_LOG_LEVEL":                 "warn",
		"E2BRIDGE_TRACER_TYPE":               "collector",
		"E2BRIDGE_TRACER_COLLECTOR_ENDPOINT": "localhost:4317",
		"POOL_SIZE":                          "99",
	}))
	require.NoError(t, err)

	assert.Equal(t, 4, opts.PoolSize)
	assert.Equal(t, "slice", opts.HeapBackend)
	assert.Equal(t, zerolog.WarnLevel, opts.Logger().GetLevel())
	assert.Equal(t, tracing.ExporterCollector, opts.TracerConfig.Type)
	assert.Equal(t, "localhost:4317", opts.TracerConfig.Collector.Endpoint)
	assert.Len(t, opts.WorkerOptions(), 3)
}

func TestModifiersOverrideEnvironment(t *testing.T) {
	opts, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"E2BRIDGE_POOL_SIZE": "4",
	}), PoolSize(2), JobTimeoutSeconds(5), HeapPages(2, 8))
	require.NoError(t, err)

	assert.Equal(t, 2, opts.PoolSize)
	assert.Equal(t, 5, opts.JobTimeoutSeconds)
	assert.Equal(t, memory.Config{InitialPages: 2, MaxPages: 8}, opts.MemoryConfig())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e2bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poolSize: 3\nheapBackend: slice\ntracer:\n  serviceName: from-file\n"), 0600))

	opts, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"E2BRIDGE_CONFIG_FILE": path,
		"E2BRIDGE_POOL_SIZE":   "4",
	}), JobTimeoutSeconds(1))
	require.NoError(t, err)

	assert.Equal(t, 3, opts.PoolSize)
	assert.Equal(t, "slice", opts.HeapBackend)
	assert.Equal(t, "from-file", opts.TracerConfig.ServiceName)
	assert.Equal(t, 1, opts.JobTimeoutSeconds)
}

func TestConfigFileErrors(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notAnOption: true\n"), 0600))

	_, err = FromFile(path)
	assert.Error(t, err)
}

func TestInvalid(t *testing.T) {
	empty := envconfig.MapLookuper(map[string]string{})

	_, err := Load(context.Background(), empty, PoolSize(0))
	assert.Error(t, err)

	_, err = Load(context.Background(), empty, HeapPages(8, 2))
	assert.Error(t, err)

	_, err = Load(context.Background(), empty, HeapBackend("nope"))
	assert.ErrorIs(t, err, memory.ErrUnknownBackend)

	_, err = Load(context.Background(), empty, LogLevel("loud"))
	assert.Error(t, err)
}

func TestUseLogger(t *testing.T) {
	logger := zerolog.Nop()

	opts, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{}), UseLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, zerolog.Disabled, opts.Logger().GetLevel())
}
