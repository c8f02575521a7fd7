package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lcrostarosa/lastword/internal/filelock"
)

// FileStore keeps state in a JSON file. Every operation holds an flock on a
// sidecar lock file so a cron-driven `lastword check` and a running server
// can share the same file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := filelock.ForFile(f.path).Do(ctx, func() error {
		data, err := f.load()
		if err != nil {
			return err
		}
		value, found = data[key]
		return nil
	})
	if err != nil {
		return "", false, unavailable(BackendFile, "get", key, err)
	}
	return value, found, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	err := filelock.ForFile(f.path).Do(ctx, func() error {
		data, err := f.load()
		if err != nil {
			return err
		}
		data[key] = value
		return f.save(data)
	})
	if err != nil {
		return unavailable(BackendFile, "set", key, err)
	}
	return nil
}

// Incr adds one to an integer value under the file lock
func (f *FileStore) Incr(ctx context.Context, key string) (int64, error) {
	var next int64
	err := filelock.ForFile(f.path).Do(ctx, func() error {
		data, err := f.load()
		if err != nil {
			return err
		}
		if raw := data[key]; raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return err
			}
			next = v
		}
		next++
		data[key] = strconv.FormatInt(next, 10)
		return f.save(data)
	})
	if err != nil {
		return 0, unavailable(BackendFile, "incr", key, err)
	}
	return next, nil
}

// Ping checks that the state directory is writable
func (f *FileStore) Ping(ctx context.Context) error {
	return filelock.ForFile(f.path).Do(ctx, func() error { return nil })
}

func (f *FileStore) Backend() string { return BackendFile }

func (f *FileStore) Close() error { return nil }

func (f *FileStore) load() (map[string]string, error) {
	data := make(map[string]string)

	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return data, nil
}

// save writes through a temp file and rename so readers never see a partial file
func (f *FileStore) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}
