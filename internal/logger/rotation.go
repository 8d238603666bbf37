package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RotatingWriter appends to one log file and swaps it out when it
// grows past the size limit. Rotation, compression and expiry all run
// inline: a single command invocation is too short-lived to hand this
// work to background goroutines and trust them to finish.
type RotatingWriter struct {
	path     string
	maxBytes int64
	maxAge   int // days; 0 keeps rotated files forever
	compress bool
	file     *os.File
	size     int64
}

// NewRotatingWriter opens (or creates) the log file at path and
// removes rotated files older than maxAge days.
func NewRotatingWriter(path string, maxSizeMB int, maxAge int, compress bool) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	w := &RotatingWriter{
		path:     path,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		maxAge:   maxAge,
		compress: compress,
		file:     file,
		size:     info.Size(),
	}
	w.removeExpired()

	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// rotate renames the current file aside and starts a fresh one.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	rotated := w.rotatedName(time.Now())
	if err := os.Rename(w.path, rotated); err != nil {
		return err
	}

	if w.compress {
		// Failure leaves the uncompressed copy in place, still readable.
		compressAndRemove(rotated)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = file
	w.size = 0

	w.removeExpired()

	return nil
}

// rotatedName stamps the rotation time before the extension, so
// memory.log rotates to memory-20060102-150405.log.
func (w *RotatingWriter) rotatedName(t time.Time) string {
	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext)
	return fmt.Sprintf("%s-%s%s", stem, t.Format("20060102-150405"), ext)
}

func compressAndRemove(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer dst.Close()

	gzw := gzip.NewWriter(dst)
	if _, err := io.Copy(gzw, src); err != nil {
		gzw.Close()
		return err
	}
	if err := gzw.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// removeExpired deletes rotated files (and their compressed forms)
// older than maxAge days. The live file is never touched.
func (w *RotatingWriter) removeExpired() {
	if w.maxAge <= 0 {
		return
	}

	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext)
	matches, err := filepath.Glob(stem + "-*")
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -w.maxAge)
	for _, path := range matches {
		if path == w.path {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(path)
		}
	}
}
