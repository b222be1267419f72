package ioexport

import (
	"os/exec"
	"strings"
)

// gitRevision returns the current code revision and a best-effort
// dirty flag. Exports must work outside a git checkout, so any failure
// degrades to "unknown" instead of erroring.
func gitRevision() (string, bool) {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown", false
	}
	revision := strings.TrimSpace(string(out))
	if revision == "" {
		return "unknown", false
	}

	status, err := exec.Command("git", "status", "--porcelain").Output()
	if err != nil {
		return revision, false
	}
	return revision, len(strings.TrimSpace(string(status))) > 0
}
