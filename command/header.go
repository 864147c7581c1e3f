package command

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/suborbital/e2bridge/bridge"
	"github.com/suborbital/e2bridge/wire"
)

// Header renders the C header for the bridge's entry points
func Header() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "header",
		Short: "render the bridge's C header",
		Long:  "writes the typedefs, wire structs and entry point prototypes host binding generators consume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger("header")

			ptrSize, err := cmd.Flags().GetUint32(ptrSizeFlag)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("get uint32 flag '%s' value", ptrSizeFlag))
			}

			if ptrSize != 0 && ptrSize != 4 && ptrSize != 8 {
				return errors.Errorf("--%s must be 0, 4 or 8, got %d", ptrSizeFlag, ptrSize)
			}

			typesOnly, err := cmd.Flags().GetBool(typesOnlyFlag)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("get bool flag '%s' value", typesOnlyFlag))
			}

			withSync, err := cmd.Flags().GetBool(withSyncFlag)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("get bool flag '%s' value", withSyncFlag))
			}

			output, err := cmd.Flags().GetString(outputFlag)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("get string flag '%s' value", outputFlag))
			}

			var w io.Writer = cmd.OutOrStdout()

			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return errors.Wrap(err, "failed to Create")
				}

				defer file.Close()

				w = file
			}

			entries := bridge.EntryPoints(withSync)

			hopts := wire.HeaderOptions{
				AssertPtrSize: ptrSize,
				TypesOnly:     typesOnly,
			}

			if err := wire.Header(w, entries, hopts); err != nil {
				return errors.Wrap(err, "failed to wire.Header")
			}

			if output != "" && output != "-" {
				logger.Info().Str("path", output).Int("entryPoints", len(entries)).Msg("header written")
			}

			return nil
		},
	}

	cmd.Flags().Uint32(ptrSizeFlag, 8, "pointer width in bytes the struct sizes are statically asserted against, 0 to skip the asserts")
	cmd.Flags().Bool(typesOnlyFlag, false, "if passed, only the typedefs and structs are written")
	cmd.Flags().Bool(withSyncFlag, false, "if passed, the synchronous entry points are declared too")
	cmd.Flags().StringP(outputFlag, "o", "", "file to write the header to, stdout if empty")

	return cmd
}
