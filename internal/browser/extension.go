package browser

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// bridgeScript is the worker file name. The controller finds the bridge by
// this substring in the worker URL.
const bridgeScript = "tab_grouper_bridge"

//go:embed extension/*
var extensionFS embed.FS

// WriteExtension writes the unpacked bridge extension into dir, replacing
// any previous copy of its files.
func WriteExtension(dir string) error {
	if dir == "" {
		return fmt.Errorf("extension dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create extension dir: %w", err)
	}
	return fs.WalkDir(extensionFS, "extension", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := extensionFS.ReadFile(path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, filepath.Base(path))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
		return nil
	})
}
