// Package inputset resolves a task's declared input patterns (explicit or
// inherited) against its working directory into concrete file paths. Both
// the staleness analyzer and the executor need the exact same resolution,
// since a mismatch between what one records and what the other checks
// would make every glob input look permanently changed.
package inputset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolve expands each pattern against workingDir. A pattern with no glob
// metacharacters is treated as a literal path: if it does not exist it is
// reported via missing rather than silently dropped, since a required
// input that vanished must force a rerun. A glob pattern that matches
// nothing is not an error; it simply contributes no files.
func Resolve(workingDir string, patterns []string) (files, missing []string, err error) {
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		resolved := pattern
		if !filepath.IsAbs(pattern) {
			resolved = filepath.Join(workingDir, pattern)
		}

		if !strings.ContainsAny(pattern, "*?[") {
			if _, statErr := os.Stat(resolved); statErr != nil {
				if !seen[resolved] {
					seen[resolved] = true
					missing = append(missing, resolved)
				}
				continue
			}
			if !seen[resolved] {
				seen[resolved] = true
				files = append(files, resolved)
			}
			continue
		}

		matches, globErr := filepath.Glob(resolved)
		if globErr != nil {
			return nil, nil, globErr
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	sort.Strings(missing)
	return files, missing, nil
}

// MTime returns path's modification time as whole Unix seconds.
func MTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}
