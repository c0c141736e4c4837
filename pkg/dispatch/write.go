package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write marshals records as indented JSON and writes them to path,
// plus every mirror path, atomically: each destination is written to a
// sibling temp file first and renamed into place, so a reader never
// observes a partially written dispatch file.
func Write(path string, records []Record, mirrors []string) error {
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("dispatch: marshal records: %w", err)
	}

	for _, dest := range append([]string{path}, mirrors...) {
		if err := atomicWrite(dest, body); err != nil {
			return fmt.Errorf("dispatch: write %s: %w", dest, err)
		}
	}
	return nil
}

func atomicWrite(path string, body []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dispatch-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
