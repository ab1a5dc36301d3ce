package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const (
	fileSuffix    = ".val"
	tempPrefix    = ".tmp-"
	removedMarker = "\x00removed"
)

// FileStore keeps the durable scope as one file per key inside dir. Writes are
// atomic (temp file + rename). Watch observes the directory with fsnotify, so
// separate processes sharing dir see each other's changes.
type FileStore struct {
	dir string

	mu      sync.Mutex
	written map[string]string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store directory required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &FileStore{dir: dir, written: make(map[string]string)}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}

func keyFromPath(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, tempPrefix) || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, fileSuffix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(data), true, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.written[key] = value
	return nil
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.written[key] = removedMarker
	return nil
}

// own reports whether state is what this instance last wrote for key. The
// remembered write is forgotten once any state for key is observed, so a later
// identical write by another process is delivered.
func (s *FileStore) own(key, state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.written[key]
	if !ok {
		return false
	}
	delete(s.written, key)
	return last == state
}

func (s *FileStore) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	var once sync.Once
	halt := func() {
		once.Do(func() {
			close(done)
			_ = w.Close()
		})
	}
	stop := func() {
		halt()
		<-exited
	}

	// seen suppresses repeated events for the same content (write + rename, chmod).
	seen := make(map[string]string)

	go func() {
		defer close(exited)
		for {
			select {
			case <-ctx.Done():
				halt()
				return
			case <-done:
				return
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				key, ok := keyFromPath(ev.Name)
				if !ok {
					continue
				}
				value, exists, err := s.Get(ctx, key)
				if err != nil {
					continue
				}
				state := value
				if !exists {
					state = removedMarker
				}
				if prev, ok := seen[key]; ok && prev == state {
					continue
				}
				seen[key] = state
				if s.own(key, state) {
					continue
				}
				fn(Change{Key: key, Value: value, Removed: !exists})
			}
		}
	}()

	return stop, nil
}
