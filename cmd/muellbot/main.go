package main

import (
	"os"

	"github.com/muellbot/muellbot/internal/version"
)

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	version.SetInfo(Version, BuildTime, GitCommit)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
