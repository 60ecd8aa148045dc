package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

const dayLayout = "2006-01-02"

// File is an append-only log file. With rotation on, the first write of a
// new day reopens it under that day's name.
type File struct {
	mu      sync.Mutex
	base    string
	rotate  bool
	now     func() time.Time
	file    *os.File
	path    string
	lastDay string
}

// OpenFile opens or creates path, creating its directory.
func OpenFile(path string, rotate bool) (*File, error) {
	return openFile(path, rotate, time.Now)
}

func openFile(path string, rotate bool, now func() time.Time) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeConfigLoad, "create log directory").
			WithContext("path", path)
	}
	f := &File{base: path, rotate: rotate, now: now}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reopenLocked(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rotate && f.now().Format(dayLayout) != f.lastDay {
		if err := f.reopenLocked(); err != nil {
			return 0, err
		}
	}
	if f.file == nil {
		return 0, os.ErrClosed
	}
	return f.file.Write(p)
}

// Path returns the file currently written to.
func (f *File) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

func (f *File) reopenLocked() error {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
	f.path = f.base
	if f.rotate {
		f.lastDay = f.now().Format(dayLayout)
		f.path = datedName(f.base, f.lastDay)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return dcerrors.Wrap(err, dcerrors.ErrCodeConfigLoad, "open log file").
			WithContext("path", f.path)
	}
	f.file = file
	return nil
}

// datedName turns "dir/dash.log" into "dir/dash-2006-01-02.log".
func datedName(base, day string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + day + ext
}
