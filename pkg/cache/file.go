package cache

import (
	"os"
	"time"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

// DefaultPath is where the snapshot lives, relative to the working directory.
const DefaultPath = "cache.json"

// Save writes the snapshot wholesale, replacing any previous file.
func Save(path string, tree *model.Tree) error {
	data, err := Snapshot(tree)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads and restores a snapshot file.
func Load(path string) (*model.Tree, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Restore(data)
}

// Age returns the wall-clock time since the snapshot was last written. The
// sync engine compares this against the configured staleness threshold to
// decide whether a restored tree needs an immediate refresh.
func Age(path string) (time.Duration, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return time.Since(fi.ModTime()), nil
}
