package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "muellbot",
	Short: "Müllbot - Telegram waste collection reminder bot",
	Long: `Müllbot reminds you about upcoming waste collection dates over Telegram.
Add a date with /add, and the bot pings you the evening before with the
matching bin category. Reminders survive restarts.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
}
