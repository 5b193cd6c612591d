package version

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand to root. With --json
// it prints the same metadata the monitor serves at /info.
func AttachCobraVersionCommand(root *cobra.Command) {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the semantic version, commit hash and build timestamp injected at build time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), Full())
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(Describe(time.Now()))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print build and boot metadata as JSON")
	root.AddCommand(cmd)
}
