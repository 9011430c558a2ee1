package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
)

// ResolveWatchDir expands a leading ~, makes the path absolute, resolves
// symlinks and checks that it names a directory
func ResolveWatchDir(dir string) (string, error) {
	expanded := strings.TrimSpace(dir)
	if expanded == "" {
		return "", errors.NewValidationError(errors.CodeMissingField, "watch_dir is required")
	}
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
		}
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.NewValidationError(errors.CodeInvalidDirectory,
			fmt.Sprintf("Watch directory does not exist: %s", expanded))
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.NewValidationError(errors.CodeInvalidDirectory,
			fmt.Sprintf("Watch directory does not exist: %s", abs))
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", errors.NewValidationError(errors.CodeInvalidDirectory,
			fmt.Sprintf("Watch directory does not exist: %s", resolved))
	}
	return resolved, nil
}

// isDir reports whether path exists and is a directory
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ScanCSVFiles returns every regular file below root with a .csv extension
// (any case), sorted by path. Unreadable subdirectories are skipped.
func ScanCSVFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), constants.IngestibleExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FileSignature identifies a file version by modification time and size
func FileSignature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()), nil
}

// sourcePath returns the absolute, symlink-resolved form of path
func sourcePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
