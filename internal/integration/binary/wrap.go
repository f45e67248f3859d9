// Package binary locates the external tools lufsmeter shells out to.
package binary

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/farcloser/primordium/fault"
)

// Locate resolves a tool on PATH. A missing tool is reported as fault.ErrMissingRequirements.
func Locate(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", fault.ErrMissingRequirements, tool, err)
	}

	slog.Debug("binary.Locate", "tool", tool, "path", path)

	return path, nil
}
