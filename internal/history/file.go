// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FileRecorder persists every appended Point to
// "<dir>/<plugin>_<metric>.dat" in the CSV format "timestamp,value" per
// line, matching spec.md §6's persisted state layout. It opens one
// append-mode file handle per series, lazily, and keeps it open for the
// life of the process.
type FileRecorder struct {
	dir string

	mu    sync.Mutex
	files map[SeriesKey]*os.File
}

// NewFileRecorder returns a FileRecorder rooted at dir, creating dir if
// necessary.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating history directory %s: %w", dir, err)
	}
	return &FileRecorder{dir: dir, files: make(map[SeriesKey]*os.File)}, nil
}

// Append implements Recorder.
func (f *FileRecorder) Append(key SeriesKey, p Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, ok := f.files[key]
	if !ok {
		path := filepath.Join(f.dir, key.String()+".dat")
		var err error
		fh, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("history: opening %s: %w", path, err)
		}
		f.files[key] = fh
	}

	line := fmt.Sprintf("%d,%s\n", p.Timestamp.Unix(), strconv.FormatFloat(p.Value, 'f', -1, 64))
	_, err := fh.WriteString(line)
	return err
}

// Close releases all open file handles.
func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for _, fh := range f.files {
		if err := fh.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadFile reads a persisted "<plugin>_<metric>.dat" file back into a
// slice of Points, in file order. An unreadable or corrupt file is
// treated as an empty history, per spec.md §4.2 "Retention": corrupt
// lines are skipped rather than aborting the whole load.
func LoadFile(path string) []Point {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var points []Point
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		epoch, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		points = append(points, Point{Timestamp: time.Unix(epoch, 0).UTC(), Value: value})
	}
	return points
}

// Restore replays a persisted series file into s for key, tolerating a
// missing or corrupt file (treated as empty history). It is intended to be
// called once at startup, before the Scheduler begins ticking.
func (s *Store) Restore(key SeriesKey, path string) {
	for _, p := range LoadFile(path) {
		// Restored points may include timestamps at second resolution
		// that collide with each other; non-decreasing is still
		// satisfied since the file was itself written in append order.
		_ = s.Record(key, p.Timestamp, p.Value)
	}
}
