package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// GetChangedFiles returns the files under dir changed since baseRef, plus
// untracked files that are not ignored. Paths are relative to dir, which may
// be a subdirectory of the repository.
func GetChangedFiles(dir, baseRef string) ([]string, error) {
	changed, err := run(dir, "diff", "--relative", "--name-only", baseRef)
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	untracked, err := run(dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %w", err)
	}

	return parseNameOnly(append(changed, untracked...)), nil
}

func run(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

func parseNameOnly(output []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	seen := make(map[string]bool)
	var paths []string
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}
