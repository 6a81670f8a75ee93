package storefake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-page-insights/session"
)

// FakeSessionStore is an in-memory session.Store for tests.
type FakeSessionStore struct {
	mu      sync.RWMutex
	session *session.Session

	PersistErr error
	ClearErr   error
}

var _ session.Store = (*FakeSessionStore)(nil)

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{}
}

// NewSignedIn returns a store already holding s.
func NewSignedIn(s session.Session) *FakeSessionStore {
	return &FakeSessionStore{session: &s}
}

func (f *FakeSessionStore) Restore(_ context.Context) (session.Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.session == nil || !f.session.Complete() || f.session.Expired(time.Now()) {
		return session.Session{}, false
	}
	return *f.session, true
}

func (f *FakeSessionStore) Persist(_ context.Context, s session.Session) error {
	if f.PersistErr != nil {
		return f.PersistErr
	}
	if err := s.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = &s
	return nil
}

func (f *FakeSessionStore) Clear(_ context.Context) error {
	if f.ClearErr != nil {
		return f.ClearErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return nil
}
