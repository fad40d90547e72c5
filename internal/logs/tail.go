package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// CaptureLogPattern matches the per-session encoder logs in the log dir.
const CaptureLogPattern = "capture-*.log"

const (
	maxLineBytes         = 1024 * 1024
	defaultFollowPolling = 250 * time.Millisecond
)

// Last returns up to n trailing lines of path and the offset just past them.
// A missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, 0, n)
	next := 0
	offset, err := scanLines(file, func(line string) {
		if len(ring) < n {
			ring = append(ring, line)
			return
		}
		ring[next] = line
		next = (next + 1) % n
	})
	if err != nil {
		return nil, 0, err
	}
	if len(ring) < n {
		return ring, offset, nil
	}
	return append(ring[next:], ring[:next]...), offset, nil
}

// Since returns the complete lines written after offset. When the file has
// shrunk below offset it was truncated or replaced, so reading restarts at
// the beginning.
func Since(path string, offset int64) ([]string, int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	read, err := scanLines(file, func(line string) { lines = append(lines, line) })
	if err != nil {
		return nil, 0, err
	}
	return lines, offset + read, nil
}

// Follow calls emit for every line appended after offset, polling every
// interval, until ctx ends. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = defaultFollowPolling
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		lines, next, err := Since(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// NewestCaptureLog returns the most recently modified encoder log in dir.
func NewestCaptureLog(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, CaptureLogPattern))
	if err != nil {
		return "", fmt.Errorf("list capture logs: %w", err)
	}
	var (
		newest   string
		newestAt time.Time
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest, newestAt = path, info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no capture logs in %s: %w", dir, os.ErrNotExist)
	}
	return newest, nil
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

// scanLines feeds complete lines to fn and reports how many bytes they
// covered. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		chunk, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			long := append([]byte(nil), chunk...)
			for errors.Is(err, bufio.ErrBufferFull) && len(long) < maxLineBytes {
				chunk, err = reader.ReadSlice('\n')
				long = append(long, chunk...)
			}
			chunk = long
		}
		if err == nil {
			consumed += int64(len(chunk))
			line := chunk[:len(chunk)-1]
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			fn(string(line))
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			return consumed, fmt.Errorf("read log file: line exceeds %d bytes", maxLineBytes)
		}
		return consumed, fmt.Errorf("read log file: %w", err)
	}
}
