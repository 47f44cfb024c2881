// Package session keeps the guest and admin identities of this client. The two
// are independent: a guest may become admin, and an admin need not be a guest.
// Every change is written through to the persistent store so a restart picks
// up the same session.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"wedding-site/internal/auth"
	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

// GuestState is a signed-in guest
type GuestState struct {
	Profile models.GuestProfile
	Token   string
}

// AdminState is an elevated admin session
type AdminState struct {
	Elevated bool
	Token    string
}

// Authenticator runs the sign-in protocols
type Authenticator interface {
	RegisterOrLogin(ctx context.Context, creds models.Credentials) (auth.Result, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Collection is the admin RSVP list, refreshed after elevation and dropped on
// sign-out
type Collection interface {
	ListAll(ctx context.Context) []models.RSVP
	Reset()
}

// Manager owns both identities
type Manager struct {
	mu         sync.RWMutex
	store      *storage.Store
	auth       Authenticator
	collection Collection
	log        zerolog.Logger

	guest *GuestState
	admin *AdminState
}

// NewManager creates a manager and restores any persisted session
func NewManager(store *storage.Store, authenticator Authenticator, logger zerolog.Logger) *Manager {
	m := &Manager{
		store: store,
		auth:  authenticator,
		log:   logger.With().Str("component", "Session").Logger(),
	}
	m.Restore()
	return m
}

// SetCollection sets the RSVP list tied to the admin session
func (m *Manager) SetCollection(c Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection = c
}

// Restore reloads both identities from the store. Anything missing or
// unreadable leaves that identity signed out.
func (m *Manager) Restore() {
	guest := m.restoreGuest()
	admin := m.restoreAdmin()

	m.mu.Lock()
	m.guest = guest
	m.admin = admin
	m.mu.Unlock()
}

func (m *Manager) restoreGuest() *GuestState {
	profile, ok, err := m.store.GuestProfile()
	if err != nil {
		m.log.Warn().Err(err).Msg("Ignoring stored guest profile")
		return nil
	}
	if !ok {
		return nil
	}
	token, ok, err := m.store.GuestToken()
	if err != nil {
		m.log.Warn().Err(err).Msg("Ignoring stored guest token")
		return nil
	}
	if !ok {
		return nil
	}
	return &GuestState{Profile: profile, Token: token}
}

func (m *Manager) restoreAdmin() *AdminState {
	elevated, err := m.store.AdminFlag()
	if err != nil {
		m.log.Warn().Err(err).Msg("Ignoring stored admin flag")
		return nil
	}
	if !elevated {
		return nil
	}
	token, ok, err := m.store.AdminToken()
	if err != nil {
		m.log.Warn().Err(err).Msg("Ignoring stored admin token")
		return nil
	}
	if !ok {
		return nil
	}
	return &AdminState{Elevated: true, Token: token}
}

// Guest returns the signed-in guest
func (m *Manager) Guest() (GuestState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.guest == nil {
		return GuestState{}, false
	}
	return *m.guest, true
}

// Admin returns the admin session
func (m *Manager) Admin() (AdminState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.admin == nil {
		return AdminState{}, false
	}
	return *m.admin, true
}

// IsAdmin reports whether an admin session is active
func (m *Manager) IsAdmin() bool {
	_, ok := m.Admin()
	return ok
}

// AdminToken returns the admin bearer token, if elevated
func (m *Manager) AdminToken() (string, bool) {
	admin, ok := m.Admin()
	if !ok || admin.Token == "" {
		return "", false
	}
	return admin.Token, true
}

// Login signs a guest in. On failure the current guest is left as it was.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) (auth.Result, error) {
	res, err := m.auth.RegisterOrLogin(ctx, creds)
	if err != nil {
		return auth.Result{}, err
	}
	m.setGuest(GuestState{Profile: res.Profile, Token: res.Token})
	return res, nil
}

// Logout ends both the guest and the admin session and forgets this client's
// RSVP. Calling it again is a no-op.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.guest = nil
	m.admin = nil
	collection := m.collection
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("Could not clear stored session")
	}
	if collection != nil {
		collection.Reset()
	}
	m.log.Debug().Msg("Signed out")
}

// EnterAdmin exchanges code for an admin session and loads the RSVP list.
// It reports false on any failure.
func (m *Manager) EnterAdmin(ctx context.Context, code string) bool {
	if code == "" {
		return false
	}

	token, err := m.auth.ExchangeCode(ctx, code)
	if err != nil {
		var authErr *models.AuthError
		if errors.As(err, &authErr) && authErr.Unreachable() {
			m.log.Error().Err(err).Msg("Network error during admin login")
		} else {
			m.log.Warn().Err(err).Msg("Admin code rejected")
		}
		return false
	}

	m.setAdmin(AdminState{Elevated: true, Token: token})

	m.mu.RLock()
	collection := m.collection
	m.mu.RUnlock()
	if collection != nil {
		collection.ListAll(ctx)
	}
	return true
}

// ExitAdmin ends the admin session only
func (m *Manager) ExitAdmin() {
	m.mu.Lock()
	m.admin = nil
	m.mu.Unlock()

	if err := m.store.Delete(storage.KeyAdminFlag, storage.KeyAdminToken); err != nil {
		m.log.Warn().Err(err).Msg("Could not clear stored admin session")
	}
}

func (m *Manager) setGuest(g GuestState) {
	m.mu.Lock()
	m.guest = &g
	m.mu.Unlock()

	if err := m.store.SetGuestProfile(g.Profile); err != nil {
		m.log.Warn().Err(err).Msg("Could not persist guest profile")
	}
	if err := m.store.SetGuestToken(g.Token); err != nil {
		m.log.Warn().Err(err).Msg("Could not persist guest token")
	}
}

func (m *Manager) setAdmin(a AdminState) {
	m.mu.Lock()
	m.admin = &a
	m.mu.Unlock()

	if err := m.store.SetAdminToken(a.Token); err != nil {
		m.log.Warn().Err(err).Msg("Could not persist admin token")
	}
	if err := m.store.SetAdminFlag(true); err != nil {
		m.log.Warn().Err(err).Msg("Could not persist admin flag")
	}
}
