package ingest

import (
	"fmt"
	"os"
	"time"
)

// Source is a file-like snapshot source. Freshness is judged against its
// last-modified time, never against its content.
type Source interface {
	// ModTime returns the source's last-modified time, or ErrMissingSource.
	ModTime() (time.Time, error)

	// ReadAll returns the source's content.
	ReadAll() ([]byte, error)
}

// FileSource reads a snapshot from the local filesystem, typically written
// there by a cron-driven fetcher.
type FileSource struct {
	Path string
}

// ModTime returns the file's mtime
func (f FileSource) ModTime() (time.Time, error) {
	info, err := os.Stat(f.Path)
	if os.IsNotExist(err) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingSource, f.Path)
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ReadAll returns the file's content
func (f FileSource) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, f.Path)
	}
	return data, err
}
