// Package manifest reads and writes the engine's two line-oriented text
// formats: the copy-mode input list, and the hashes.sha1 manifest consumed
// by verify-runs and produced by copy-runs.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjhall/streamcopy/internal/task"
)

// FileName is the manifest's fixed name within a destination directory.
const FileName = "hashes.sha1"

// ReadListFile reads a copy-mode input list: one path per line, UTF-8. Blank
// lines are dropped; no other filtering happens here (directory filtering
// needs a stat call and is the Supervisor's job).
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var paths []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// RenderLine formats one manifest entry as "<digest>  <path>\n".
func RenderLine(digestHex, path string) string {
	return task.HashLine{Digest: digestHex, Path: path}.Render()
}

// parseLine splits a manifest line on its first run of whitespace. Both
// fields are trimmed. Returns ok=false for lines with fewer than two
// non-empty fields — these are silently skipped by the caller.
func parseLine(line string) (digestHex, path string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	idx := strings.IndexFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	if idx < 0 {
		return "", "", false
	}

	digestHex = line[:idx]
	rest := strings.TrimLeft(line[idx:], " \t")
	path = strings.TrimSpace(rest)
	if digestHex == "" || path == "" {
		return "", "", false
	}
	return digestHex, path, true
}

// ParseManifestFile reads a hashes.sha1-format file and returns one
// VerifyTask per recognized line. Unrecognized lines (fewer than two
// fields) are silently skipped, per the format's tolerance for stray
// content.
func ParseManifestFile(path string) ([]task.VerifyTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []task.VerifyTask
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		digestHex, p, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		entries = append(entries, task.VerifyTask{Path: p, ExpectedDigest: digestHex})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Truncate creates (or empties) the manifest file under destDir, deleting
// any pre-existing one first, and returns its path. Called once at
// copy-run initialization.
func Truncate(destDir string) (string, error) {
	path := filepath.Join(destDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove existing manifest: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("create manifest: %w", err)
	}
	return path, nil
}

// AppendLines writes lines to the manifest at path in append mode. Called
// once at finalization — the manifest was already truncated at run start,
// so this is the run's only write to it.
func AppendLines(path string, lines []task.HashLine) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l.Render()); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WritePathList writes one path per line to path, always creating the file
// (possibly empty) even when paths is empty.
func WritePathList(path string, paths []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, p := range paths {
		if _, err := w.WriteString(p + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
