// Package session holds the signed-in user's identity and access token and the
// stores that persist it under a single key.
package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-page-insights/internal/errors"
)

// Session is the single authentication state of the dashboard.
type Session struct {
	// Core identity
	SubjectID   string `json:"subjectId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`

	// User level token, required for every downstream call
	AccessToken string     `json:"accessToken"`
	Expiry      *time.Time `json:"expiry,omitempty"`
}

// Store persists at most one Session.
type Store interface {
	// Restore returns the persisted session. Missing, malformed, incomplete or
	// expired blobs all report false.
	Restore(ctx context.Context) (Session, bool)

	// Persist overwrites the persisted session.
	Persist(ctx context.Context, s Session) error

	// Clear removes the persisted session. Clearing nothing is not an error.
	Clear(ctx context.Context) error
}

// Complete reports whether every required field is populated.
func (s Session) Complete() bool {
	return s.SubjectID != "" && s.DisplayName != "" && s.AccessToken != ""
}

// Expired reports whether the access token has passed its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return s.Expiry != nil && !s.Expiry.After(now)
}

// Validate rejects sessions that must never be persisted.
func (s Session) Validate() error {
	if !s.Complete() {
		return errors.NewValidationError("session", "subject id, display name and access token are required", errors.ErrSessionIncomplete)
	}
	return nil
}

// usable is the check every store applies on restore.
func usable(s Session, now time.Time) error {
	if !s.Complete() {
		return errors.ErrSessionIncomplete
	}
	if s.Expired(now) {
		return errors.ErrSessionExpired
	}
	return nil
}
