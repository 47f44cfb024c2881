package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"wedding-site/internal/models"
)

// Keys under which session state is persisted. Their names are shared with
// every client of the same store, so they must not change.
const (
	KeyGuestProfile = "cc_user"
	KeyGuestToken   = "cc_user_token"
	KeyAdminFlag    = "cc_admin"
	KeyAdminToken   = "cc_admin_token"
	KeyMyRSVPID     = "cc_my_rsvp_id"
)

// AllKeys lists every key the session writes
var AllKeys = []string{KeyGuestProfile, KeyGuestToken, KeyAdminFlag, KeyAdminToken, KeyMyRSVPID}

// ErrCorrupt is returned when a stored value cannot be decoded
var ErrCorrupt = errors.New("stored value is corrupt")

// Backend is a durable string key/value store
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store wraps a Backend with typed accessors for the session keys. Every
// method reports failure instead of hiding it; callers decide whether a failed
// read or write matters.
type Store struct {
	backend Backend
}

// New creates a store on top of the given backend
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Open creates a backend of the given kind inside dataDir.
// On ErrCorrupt the returned backend is usable and starts empty.
func Open(kind, dataDir string) (Backend, error) {
	switch kind {
	case "file", "":
		return OpenFile(filepath.Join(dataDir, "session.json"))
	case "sqlite":
		b, err := OpenSQLite(filepath.Join(dataDir, "session.db"))
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

// GuestProfile returns the persisted guest profile
func (s *Store) GuestProfile() (models.GuestProfile, bool, error) {
	var profile models.GuestProfile
	raw, ok, err := s.get(KeyGuestProfile)
	if err != nil || !ok {
		return profile, false, err
	}
	if strings.TrimSpace(raw) == "null" {
		return models.GuestProfile{}, false, fmt.Errorf("decode %s: %w: null profile", KeyGuestProfile, ErrCorrupt)
	}
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return models.GuestProfile{}, false, fmt.Errorf("decode %s: %w: %v", KeyGuestProfile, ErrCorrupt, err)
	}
	return profile, true, nil
}

// SetGuestProfile persists the guest profile as JSON
func (s *Store) SetGuestProfile(profile models.GuestProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyGuestProfile, err)
	}
	return s.set(KeyGuestProfile, string(data))
}

// GuestToken returns the persisted guest bearer token
func (s *Store) GuestToken() (string, bool, error) {
	return s.nonEmpty(KeyGuestToken)
}

// SetGuestToken persists the guest bearer token
func (s *Store) SetGuestToken(token string) error {
	return s.set(KeyGuestToken, token)
}

// AdminFlag reports whether the admin flag is persisted as "true"
func (s *Store) AdminFlag() (bool, error) {
	raw, ok, err := s.get(KeyAdminFlag)
	if err != nil || !ok {
		return false, err
	}
	return raw == "true", nil
}

// SetAdminFlag persists the admin flag
func (s *Store) SetAdminFlag(elevated bool) error {
	if !elevated {
		return s.Delete(KeyAdminFlag)
	}
	return s.set(KeyAdminFlag, "true")
}

// AdminToken returns the persisted admin bearer token
func (s *Store) AdminToken() (string, bool, error) {
	return s.nonEmpty(KeyAdminToken)
}

// SetAdminToken persists the admin bearer token
func (s *Store) SetAdminToken(token string) error {
	return s.set(KeyAdminToken, token)
}

// MyRSVPID returns the id of the RSVP this client created
func (s *Store) MyRSVPID() (string, bool, error) {
	return s.nonEmpty(KeyMyRSVPID)
}

// SetMyRSVPID persists the id of the RSVP this client created
func (s *Store) SetMyRSVPID(id string) error {
	return s.set(KeyMyRSVPID, id)
}

// Delete removes the given keys. All keys are attempted even if one fails.
func (s *Store) Delete(keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := s.backend.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Clear removes every session key
func (s *Store) Clear() error {
	return s.Delete(AllKeys...)
}

func (s *Store) get(key string) (string, bool, error) {
	value, ok, err := s.backend.Get(key)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, ok, nil
}

func (s *Store) nonEmpty(key string) (string, bool, error) {
	value, ok, err := s.get(key)
	if err != nil || !ok || value == "" {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) set(key, value string) error {
	if err := s.backend.Set(key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
