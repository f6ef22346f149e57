// Package lineio reads roster text files line by line and writes parsed
// documents as JSON. Roster exports can run to hundreds of thousands of
// lines, so reading streams rather than slurping.
package lineio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Lines longer than the default scanner buffer exist in some exports
// (concatenated page footers), so the cap is generous.
const maxLineBytes = 1024 * 1024

// FileInfo describes a source file before parsing.
type FileInfo struct {
	Path      string
	SizeBytes int64
}

// Stat returns the source file's size, failing early on missing files so
// the caller gets a clean error before any parsing starts.
func Stat(path string) (FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat source: %w", err)
	}
	if fi.IsDir() {
		return FileInfo{}, fmt.Errorf("stat source: %s is a directory", path)
	}
	return FileInfo{Path: path, SizeBytes: fi.Size()}, nil
}

// EachLine streams the file through fn with 1-based line numbers,
// stripping trailing carriage returns. It returns the total line count.
// An error from fn stops the scan and is returned as-is.
func EachLine(path string, fn func(n int, line string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if err := fn(n, line); err != nil {
			return n, err
		}
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}

// WriteJSON marshals v to path. When backup is set and the file already
// exists, the old file is moved aside with a timestamp suffix first so a
// re-run never destroys the previous output. The write itself goes
// through a temp file and rename.
func WriteJSON(path string, v any, indent, backup bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')

	if backup {
		if _, statErr := os.Stat(path); statErr == nil {
			bak := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
			if err := os.Rename(path, bak); err != nil {
				return fmt.Errorf("backup existing output: %w", err)
			}
			log.Info().Str("backup", bak).Msg("existing output moved aside")
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

// IsRosterFile reports whether the filename looks like a roster export,
// used by directory batch mode to pick candidates.
func IsRosterFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dat", ".txt":
		return true
	}
	return false
}
