package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps the session blob in a single file.
type FileStore struct {
	mu    sync.Mutex
	path  string
	codec Codec
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string, codec Codec) *FileStore {
	return &FileStore{path: path, codec: codec}
}

func (f *FileStore) Restore(_ context.Context) (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("path", f.path).Msg("session file unreadable, treating as signed out")
		}
		return Session{}, false
	}

	s, err := f.codec.Decode(blob)
	if err == nil {
		err = usable(s, time.Now())
	}
	if err != nil {
		log.Debug().Err(err).Str("path", f.path).Msg("discarding persisted session")
		return Session{}, false
	}
	return s, true
}

// Persist writes to a temp file in the same directory and renames it over the
// session file so readers never see a partial blob.
func (f *FileStore) Persist(_ context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	blob, err := f.codec.Encode(s)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileStore Persist] mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("[FileStore Persist] temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Persist] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileStore Persist] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("[FileStore Persist] rename: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[FileStore Clear] %w", err)
	}
	return nil
}
