// Package cli implements the quotadeck command line interface.
package cli

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// GlobalFlags contains global flags available for all commands
type GlobalFlags struct {
	Config   string
	AuthPath string
	Verbose  bool
	JSON     bool
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "quotadeck",
	Short: "QuotaDeck - quota dashboard for coding agent accounts",
	Long: `QuotaDeck polls the quota endpoints of Antigravity, Codex, Gemini CLI,
and GitHub Copilot accounts discovered from local auth files, normalizes
the responses, and serves the combined state over HTTP.

Usage:
  quotadeck [command] [flags]

Available Commands:
  serve      Start the QuotaDeck server
  quotas     Fetch current quotas once and print them
  accounts   List discovered auth entries

Use "quotadeck [command] --help" for more information about a command.`,
}

var globalFlags GlobalFlags

// InitRoot initializes the root command with global flags
func InitRoot() {
	configPath := os.Getenv("QUOTADECK_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	RootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", configPath, "Path to configuration file")
	RootCmd.PersistentFlags().StringVar(&globalFlags.AuthPath, "auths", "", "Path to the auth file directory (overrides config)")
	RootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")
	RootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format")

	RootCmd.AddCommand(versionCmd)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of QuotaDeck",
	Run: func(cmd *cobra.Command, args []string) {
		info := GetVersionInfo()
		cmd.Println("QuotaDeck Version:", info.Version)
		cmd.Println("Go Version:", info.GoVersion)
		cmd.Println("OS/Arch:", info.OS+"/"+info.Arch)
	},
}

// VersionInfo contains version information
type VersionInfo struct {
	Version   string
	GoVersion string
	OS        string
	Arch      string
}

// GetVersionInfo returns version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
