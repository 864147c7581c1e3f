package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/suborbital/e2bridge/foundation/tracing"
	"github.com/suborbital/e2bridge/options"
	"github.com/suborbital/e2bridge/release"
	"github.com/suborbital/e2bridge/signaler"
)

const shutdownGrace = 5 * time.Second

// Exercise drives every operation through the bridge and checks the heap for leaks
func Exercise() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "run every bridge operation against a linear heap",
		Long: `runs every operation once synchronously and then --rounds times
asynchronously, prints a JSON report, and fails if the heap still holds
allocations afterwards`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := modsFromFlags(cmd.Flags())
			if err != nil {
				return errors.Wrap(err, "failed to modsFromFlags")
			}

			opts, err := options.NewWithModifiers(mods...)
			if err != nil {
				return errors.Wrap(err, "failed to options.NewWithModifiers")
			}

			rounds, err := cmd.Flags().GetInt(roundsFlag)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("get int flag '%s' value", roundsFlag))
			}

			logger := opts.Logger().With().Str("mode", "exercise").Str("version", release.Version()).Logger()

			tp, err := tracing.SetupTracing(opts.TracerConfig, logger)
			if err != nil {
				return errors.Wrap(err, "failed to tracing.SetupTracing")
			}

			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Err(err).Msg("tracer provider shutdown")
				}
			}()

			reports := make(chan *Report, 1)

			sig := signaler.Setup()
			sig.Start(func(ctx context.Context) error {
				report, err := runExercise(ctx, opts, rounds, waitFor(opts))
				reports <- report

				return err
			})

			runErr := sig.Wait(shutdownGrace)

			var report *Report
			select {
			case report = <-reports:
			default:
			}

			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				if err := enc.Encode(report); err != nil {
					return errors.Wrap(err, "failed to Encode report")
				}
			}

			if runErr != nil {
				return errors.Wrap(runErr, "exercise failed")
			}

			if report == nil {
				return errors.New("exercise interrupted")
			}

			logger.Info().
				Int("calls", len(report.Calls)).
				Int64("faults", report.Faults).
				Int("liveAllocations", report.Heap.LiveAllocations).
				Msg("exercise complete")

			return nil
		},
	}

	cmd.Flags().String(backendFlag, "wazero", "linear memory backend the heap is built on, overrides E2BRIDGE_HEAP_BACKEND")
	cmd.Flags().Int(poolSizeFlag, 1, "worker goroutines per operation, overrides E2BRIDGE_POOL_SIZE")
	cmd.Flags().Int(timeoutFlag, 0, "asynchronous job timeout in seconds, 0 for none")
	cmd.Flags().Int(roundsFlag, 4, "number of times every operation is called asynchronously")
	cmd.Flags().String(logLevelFlag, "info", "log level, overrides E2BRIDGE_LOG_LEVEL")
	cmd.Flags().String(configFileFlag, "", "YAML options file, overrides E2BRIDGE_CONFIG_FILE")

	return cmd
}

// waitFor bounds how long the run waits for asynchronous completions
func waitFor(opts *options.Options) time.Duration {
	if opts.JobTimeoutSeconds > 0 {
		return time.Duration(opts.JobTimeoutSeconds+1) * time.Second
	}

	return 30 * time.Second
}
