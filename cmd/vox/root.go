// Package cli implements the vox command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/voxloop/vox/internal/config"
)

// Shared CLI flags
var (
	verbose bool
	quiet   bool
)

// ServerConfig holds the loaded configuration (set by main).
var ServerConfig *config.Config

// SetupRootCmd configures the root command with all subcommands and flags.
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "vox",
		Short: "Vox - voice cloning service",
		Long: `Vox enrolls speaker voices from short audio clips and synthesizes
speech in those voices.

Just type 'vox' to start the HTTP server.`,
		Run: func(cmd *cobra.Command, args []string) {
			RunServe()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress request logging")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(EnrollCmd())
	rootCmd.AddCommand(SayCmd())
	rootCmd.AddCommand(VoicesCmd())
	rootCmd.AddCommand(VersionCmd())

	return rootCmd
}
