package command

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/suborbital/e2bridge/release"
)

// Root returns the e2bridge command with every subcommand attached
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "e2bridge",
		Short: "e2bridge FFI bridge tooling",
		Long: `
e2bridge exposes a fixed table of operations to a host runtime over a C ABI.

Use 'header' to render the C declarations host binding generators consume,
and 'exercise' to drive every operation through the bridge and check the
heap for leaks.`,
		Version:       release.Version(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(Header())
	cmd.AddCommand(Exercise())

	return cmd
}

func setupLogger(mode string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().
		Timestamp().
		Str("mode", mode).
		Str("version", release.Version()).
		Logger().Level(zerolog.InfoLevel)
}
