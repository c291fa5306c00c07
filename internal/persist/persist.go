package persist

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"pt/internal/task"
)

// File is the gateway to the task store on disk. Open acquires an
// exclusive advisory lock on the whole file and holds it until Close,
// so one invocation at a time reads, mutates and rewrites the store.
type File struct {
	path string
	f    *os.File
	lock *flock.Flock
}

// Open creates the store file and its directory if missing, then blocks
// until the exclusive lock is acquired.
func Open(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create task dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open task file %s: %w", path, err)
	}
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock task file %s: %w", path, err)
	}
	return &File{path: path, f: f, lock: lock}, nil
}

// Load decodes the whole file into a store. An empty file is an empty
// store; malformed contents are an error, never a partial recovery.
func (f *File) Load() (*task.Store, error) {
	if _, err := f.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek task file: %w", err)
	}
	data, err := io.ReadAll(f.f)
	if err != nil {
		return nil, fmt.Errorf("read task file %s: %w", f.path, err)
	}
	st := task.NewStore()
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", f.path, err)
	}
	if err := st.Check(); err != nil {
		return nil, fmt.Errorf("task file %s: %w", f.path, err)
	}
	return st, nil
}

// Save rewrites the whole file in place. The rewrite stays on the
// locked handle; writing a temp file and renaming would swap the inode
// out from under the advisory lock.
func (f *File) Save(st *task.Store) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := f.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate task file: %w", err)
	}
	if _, err := f.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek task file: %w", err)
	}
	if _, err := f.f.Write(data); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	return nil
}

// Close releases the lock and the handle. Safe to call more than once.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.lock.Unlock()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	f.f = nil
	return err
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }
