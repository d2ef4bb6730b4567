package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trustframe/internal/config"
	"trustframe/internal/services"
)

// expandInputPath resolves ~ and relative segments in a user-supplied path.
func expandInputPath(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("path is required")
	}
	return config.ExpandPath(arg)
}

// resolveInputFile expands ~ and checks the path names a readable regular file.
func resolveInputFile(arg string) (string, error) {
	path, err := expandInputPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "input", "stat", path, err)
		}
		return "", fmt.Errorf("inspect path %q: %w", path, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "input", "stat", path+" is a directory", nil)
	}
	return path, nil
}

// writeJSON prints v as indented JSON on the command's stdout. File paths are
// printed verbatim, without HTML escaping.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
