package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/migledger/internal/update"
	"github.com/pthm/migledger/internal/version"
)

var versionCheck bool

// newChecker is replaced in tests.
var newChecker = update.NewChecker

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Example: `  # Print the build version
  migledger version

  # Also check GitHub for a newer release
  migledger version --check`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(w, version.Info())
		if !versionCheck {
			return
		}

		info, err := newChecker().Check(cmd.Context())
		if err != nil {
			logger.Debug("update check failed", zap.Error(err))
			_, _ = fmt.Fprintln(w, "Update check failed.")
			return
		}
		if info.UpdateAvailable {
			_, _ = fmt.Fprintf(w, "A newer release is available: %s (current %s)\n", info.LatestVersion, info.CurrentVersion)
			if info.ReleaseURL != "" {
				_, _ = fmt.Fprintf(w, "  %s\n", info.ReleaseURL)
			}
			return
		}
		_, _ = fmt.Fprintln(w, "You are running the latest release.")
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
