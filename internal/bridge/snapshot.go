package bridge

import (
	"os"
	"strings"
)

// snapshot is the set of fragment filenames present in the segment
// directory at one sampling instant. Snapshots compare by set equality;
// no ordering of the names is ever relied on.
type snapshot map[string]struct{}

// takeSnapshot lists dir and keeps the names ending in the fragment suffix.
func takeSnapshot(dir string) (snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	snap := make(snapshot, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), fragmentSuffix) {
			snap[entry.Name()] = struct{}{}
		}
	}
	return snap, nil
}

// equal reports whether both snapshots contain exactly the same names.
func (s snapshot) equal(other snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for name := range s {
		if _, ok := other[name]; !ok {
			return false
		}
	}
	return true
}

// CountFragments returns the number of fragment files currently in dir,
// or 0 if the directory cannot be read.
func CountFragments(dir string) int {
	snap, err := takeSnapshot(dir)
	if err != nil {
		return 0
	}
	return len(snap)
}
