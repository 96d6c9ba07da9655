// Package fsutil picks input and output paths for model files.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/weightfix/pkg/formats"
)

// maxUnusedAttempts bounds the "name (n).ext" search.
const maxUnusedAttempts = 1000

// ErrNoUnusedPath is returned when every candidate name is taken.
var ErrNoUnusedPath = errors.New("no unused file name")

// OutputPath returns input with suffix inserted before the extension:
// "dir/model.pmx" becomes "dir/model_weightfix.pmx".
func OutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + suffix + ext
}

// UnusedPath returns path if nothing exists there, otherwise the first free
// "name (n).ext" with n counting from 1.
func UnusedPath(path string) (string, error) {
	if !exists(path) {
		return path, nil
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; n <= maxUnusedAttempts; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoUnusedPath, path)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FindModels walks root and returns every supported model file, sorted.
// Hidden directories are skipped.
func FindModels(root string) ([]string, error) {
	var models []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if formats.IsModelFile(path) {
			models = append(models, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(models)
	return models, nil
}
