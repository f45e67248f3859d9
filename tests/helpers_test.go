package tests_test

import (
	"fmt"
	"strings"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

// expectContains returns a comparator verifying the output contains a substring.
func expectContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectNotContains returns a comparator verifying the output lacks a substring.
func expectNotContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("unexpected substring %q found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectFiniteLoudness verifies that a field line of the console output carries a number,
// not the silence marker.
func expectFiniteLoudness(field string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		for line := range strings.SplitSeq(stdout, "\n") {
			if !strings.Contains(line, field+":") {
				continue
			}

			if strings.Contains(line, "-inf") {
				testing.Log(fmt.Sprintf("expected finite %s, got line %q", field, line))
				testing.Fail()
			}

			return
		}

		testing.Log(fmt.Sprintf("field %q not found in output:\n%s", field, stdout))
		testing.Fail()
	}
}
