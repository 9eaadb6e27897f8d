// Package settings holds build metadata and the per-run options shared by
// the gridx CLI and its packages.
package settings

import (
	"os"
	"path/filepath"
)

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "gridx"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds configuration for a single execution of the application.
type Run struct {
	MinLogLevel int8
	LogFile     string
	IsQuiet     bool
	NoColor     bool
	// StorageBackend is memory, file or sqlite.
	StorageBackend string
	StateDir       string
	ConfigPath     string
	Interactive    bool
}

// NewCliParams returns the defaults for a CLI run.
func NewCliParams() *Run {
	return &Run{
		StorageBackend: "file",
		StateDir:       DefaultStateDir(),
	}
}

// DefaultStateDir is where column layouts persist: $XDG_STATE_HOME/gridx,
// falling back to ~/.local/state/gridx and then to a temp directory.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, CliBinaryName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", CliBinaryName)
	}
	return filepath.Join(os.TempDir(), CliBinaryName)
}
