// Package version exposes build identification, set at link time with
// -ldflags "-X github.com/farcloser/lufsmeter/version.version=... -X ...commit=...".
package version

import (
	"os"
	"path/filepath"
	"runtime/debug"
)

//nolint:gochecknoglobals // set by the linker
var (
	name    = ""
	version = ""
	commit  = ""
)

// Name returns the program name, defaulting to the executable base name.
func Name() string {
	if name != "" {
		return name
	}

	return filepath.Base(os.Args[0])
}

// Version returns the release version, or the module version from build info.
func Version() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

// Commit returns the VCS revision the binary was built from.
func Commit() string {
	if commit != "" {
		return commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}
