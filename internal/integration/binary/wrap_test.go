package binary

import (
	"errors"
	"testing"

	"github.com/farcloser/primordium/fault"
)

func TestLocateMissingTool(t *testing.T) {
	_, err := Locate("lufsmeter-no-such-tool")
	if !errors.Is(err, fault.ErrMissingRequirements) {
		t.Errorf("got %v, want ErrMissingRequirements", err)
	}
}

func TestLocateFindsShell(t *testing.T) {
	path, err := Locate("sh")
	if err != nil {
		t.Skipf("no sh on PATH: %v", err)
	}

	if path == "" {
		t.Error("empty path for sh")
	}
}
