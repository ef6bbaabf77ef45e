// =============================================================================
// PO Budget Report - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the report tool:
//   - Data file discovery (working directory, executable directory, parent)
//   - Input extension validation
//   - Output directory management
//   - Output file naming
//   - Atomic output writes
//
// OUTPUT STRATEGY:
//   - Reports are written to a temporary file in the output directory and
//     renamed into place, so a failed export never leaves a partial file.
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a data file is not in any search directory.
var ErrNotFound = errors.New("data file not found")

// DataExtensions lists the accepted input file extensions.
var DataExtensions = []string{".xlsx", ".csv"}

// ExeDirPlaceholder stands for the directory of the running executable in a
// search directory list.
const ExeDirPlaceholder = "{exe}"

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// LocateFile finds a data file.
//
// PARAMETERS:
//   - name: The file name or path. Absolute paths are checked as is,
//     relative ones are joined to each search directory.
//   - dirs: The directories to search, in order. "{exe}" is expanded to
//     the executable's directory.
//
// RETURNS:
//   - The path of the first match.
//   - ErrNotFound (wrapped with the searched locations) otherwise.
func LocateFile(name string, dirs []string) (string, error) {
	if filepath.IsAbs(name) {
		if FileExists(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var searched []string
	for _, dir := range ExpandSearchDirs(dirs) {
		candidate := filepath.Join(dir, name)
		if FileExists(candidate) {
			return candidate, nil
		}
		searched = append(searched, dir)
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrNotFound, name, strings.Join(searched, ", "))
}

// ExpandSearchDirs resolves "{exe}" and drops duplicate entries.
func ExpandSearchDirs(dirs []string) []string {
	var out []string
	for _, dir := range dirs {
		if dir == ExeDirPlaceholder {
			exe, err := os.Executable()
			if err != nil {
				continue
			}
			dir = filepath.Dir(exe)
		}
		if !slices.Contains(out, dir) {
			out = append(out, dir)
		}
	}
	return out
}

// DiscoverDataFiles lists the files with an accepted extension in dir,
// sorted by name.
func DiscoverDataFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		if HasDataExtension(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// HasDataExtension reports whether path ends in an accepted extension.
func HasDataExtension(path string) bool {
	return slices.Contains(DataExtensions, strings.ToLower(filepath.Ext(path)))
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates dir and its parents if they don't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//   - params: A map of placeholder values. "ext" is required.
//
// PLACEHOLDERS:
//   - {uuid}: A random UUID
//   - {timestamp}: Current timestamp (YYYYMMDD_HHMMSS)
//   - {date}: Current date (YYYYMMDD)
//   - {time}: Current time (HHMMSS)
//   - {report}: Report name
//   - {ext}: File extension without the dot
//
// RETURNS:
//   - The generated file name, always ending in ".{ext}".
//
// EXAMPLE:
//
//	format: "{report}_{timestamp}.{ext}"
//	params: {"report": "po_details", "ext": "csv"}
//	output: "po_details_20240115_143022.csv"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	// Build replacements.
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}

	// Add custom params.
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	// Apply replacements.
	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Ensure the extension.
	if ext := params["ext"]; ext != "" && !strings.HasSuffix(strings.ToLower(result), "."+strings.ToLower(ext)) {
		result += "." + ext
	}

	return result
}

// =============================================================================
// OUTPUT WRITING
// =============================================================================

// WriteAtomic writes a file through a temporary file in the same directory
// and renames it into place once write succeeds.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a regular file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// GetFileModTime returns the modification time of a file.
func GetFileModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
