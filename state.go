package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var errNoState = errors.New("no state file configured")

// loadState reads the persisted baseline.
func loadState(path string) (*ResultTree, error) {
	if path == "" {
		return nil, errNoState
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree ResultTree
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	return &tree, nil
}

// saveState replaces the persisted baseline. The document is written to a
// temporary file in the same directory and renamed over the old one.
func saveState(path string, tree *ResultTree) (err error) {
	if path == "" {
		return errNoState
	}
	b, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
