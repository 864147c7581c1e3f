package command

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suborbital/e2bridge/api"
	"github.com/suborbital/e2bridge/options"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}

	cmd := Root()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestHeaderToStdout(t *testing.T) {
	out, err := execute(t, "header", "--with-sync")
	require.NoError(t, err)

	assert.Contains(t, out, "typedef int64_t DartPort;")
	assert.Contains(t, out, "typedef struct wire_TreeNode {")
	assert.Contains(t, out, "_Static_assert(sizeof(wire_TreeNode) == 16")
	assert.Contains(t, out, "void store_dart_post_cobject(DartPostCObjectFnType ptr);")
	assert.Contains(t, out, "struct WireSyncReturnStruct wire_run_sync(void);")
}

func TestHeaderTypesOnlyToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge_types.h")

	_, err := execute(t, "header", "--types-only", "--ptr-size", "4", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	header := string(data)
	assert.Contains(t, header, "_Static_assert(sizeof(wire_TreeNode) == 8")
	assert.NotContains(t, header, "store_dart_post_cobject")
}

func TestHeaderRejectsPointerSize(t *testing.T) {
	_, err := execute(t, "header", "--ptr-size", "3")
	assert.Error(t, err)
}

func TestExerciseCommand(t *testing.T) {
	out, err := execute(t, "exercise", "--backend", "slice", "--rounds", "2", "--pool-size", "2", "--log-level", "disabled")
	require.NoError(t, err)

	report := Report{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	table := calls()

	assert.Equal(t, "slice", report.Backend)
	assert.Equal(t, uint32(4), report.PointerSize)
	assert.Len(t, report.Calls, len(table)+2*(len(table)-1))
	assert.Equal(t, int64(2), report.Faults)
	assert.Zero(t, report.Heap.LiveAllocations)
	assert.Len(t, report.Workers.Workers, len(table))

	for _, cr := range report.Calls {
		switch cr.Op {
		case api.OpDeliberatelyPanic:
			assert.Equal(t, modeSync, cr.Mode)
			assert.True(t, cr.Panicked)
		case api.OpDeliberatelyReturnError:
			assert.False(t, cr.Success)
			assert.Equal(t, api.ErrDeliberate.Error(), cr.Error)
		default:
			assert.True(t, cr.Success, "%s %s: %s", cr.Op, cr.Mode, cr.Error)
		}
	}
}

func TestExerciseRejectsUnknownBackend(t *testing.T) {
	_, err := execute(t, "exercise", "--backend", "nope", "--log-level", "disabled")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "nope"))
}

func TestRunExerciseAsyncPortsAreUnique(t *testing.T) {
	opts, err := options.Load(context.Background(), envconfig.MapLookuper(map[string]string{}),
		options.HeapBackend("slice"),
		options.PoolSize(3),
		options.UseLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	report, err := runExercise(context.Background(), opts, 3, 10*time.Second)
	require.NoError(t, err)

	ports := map[int64]bool{}
	for _, cr := range report.Calls {
		if cr.Mode != modeAsync {
			continue
		}

		assert.False(t, ports[cr.Port], "port %d completed twice", cr.Port)
		ports[cr.Port] = true
	}

	assert.Len(t, ports, 3*(len(calls())-1))
}

func TestRunExerciseRounds(t *testing.T) {
	opts, err := options.Load(context.Background(), envconfig.MapLookuper(map[string]string{}),
		options.HeapBackend("slice"),
		options.UseLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	_, err = runExercise(context.Background(), opts, 0, time.Second)
	assert.Error(t, err)
}
