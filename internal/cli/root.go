// Package cli defines the supgate command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cfgFile string

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "supgate",
	Short: "supgate - runtime policy gate for AI-generated content",
	Long: `supgate sits between content generation and delivery. Every request is
scored for unproven claims, PII, abuse signals and layout quality, then
allowed, degraded to strict mode, or blocked with a signed decision.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("supgate %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: sup.yaml in the working directory)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(signCmd)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "sup.yaml"
}
