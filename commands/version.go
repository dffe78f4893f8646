package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VERSION is set at build time with -ldflags "-X github.com/ordinario/contahub-app-sheets/commands.VERSION=..."
var VERSION = "v0.1.0"

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Displays the current version",
		Long:  "Displays the contahub-app-sheets version in the format v<major>.<minor>.<build> e.g. v0.1.0",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", VERSION)
		},
	}
}
