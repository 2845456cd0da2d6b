// Package version holds build metadata injected at link time.
package version

import "fmt"

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// SetInfo overrides the build metadata. Empty values are ignored.
func SetInfo(v, bt, gc string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
}

// FormatStartupMessage returns the text sent to configured chats when the bot
// comes up.
func FormatStartupMessage() string {
	return fmt.Sprintf("\U0001F5D1 Müllbot is up\nVersion: %s\nBuild: %s", Version, BuildTime)
}
