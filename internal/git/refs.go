package git

import (
	"fmt"
	"strings"
)

const headsPrefix = "refs/heads/"

// parseBranchesFromShowRef returns the short names of the local branches
// listed in `git show-ref --heads` output, in output order. Other refs are
// skipped.
func parseBranchesFromShowRef(out string) ([]string, error) {
	var names []string
	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		if name, ok := strings.CutPrefix(parts[1], headsPrefix); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
