package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/intake/internal/core"
)

func readJSON(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func readSnapshot(path string) (core.Snapshot, error) {
	var snap core.Snapshot
	if err := readJSON(path, &snap); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
