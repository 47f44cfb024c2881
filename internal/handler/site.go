package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wedding-site/internal/api"
	"wedding-site/internal/auth"
	"wedding-site/internal/models"
	"wedding-site/internal/rsvp"
	"wedding-site/internal/session"
	"wedding-site/internal/storage"
)

// Config holds the wedding details shown to guests
type Config struct {
	WeddingDate time.Time
	BrideName   string
	GroomName   string
}

// Site is everything the presentation layer needs: the session, the RSVPs
// and the wedding details. Build one at startup and pass it around.
type Site struct {
	session *session.Manager
	rsvps   *rsvp.Repository
	config  *Config
	log     zerolog.Logger
}

// NewSite wires the session and RSVP repository on top of client and store
func NewSite(client *api.Client, store *storage.Store, cfg *Config, logger zerolog.Logger) *Site {
	sessions := session.NewManager(store, auth.NewHandler(client, logger), logger)
	rsvps := rsvp.NewRepository(client, store, sessions, logger)
	sessions.SetCollection(rsvps)

	return &Site{
		session: sessions,
		rsvps:   rsvps,
		config:  cfg,
		log:     logger.With().Str("component", "Site").Logger(),
	}
}

// SetNotifier sets who is told about RSVP changes made here
func (s *Site) SetNotifier(n rsvp.Notifier) {
	s.rsvps.SetNotifier(n)
}

// Bootstrap loads what a restored session needs: this client's RSVP from the
// stored id and, for admins, the RSVP list. Failures are logged only.
func (s *Site) Bootstrap(ctx context.Context) {
	if mine, ok := s.rsvps.RefreshMineFromStore(ctx); ok {
		s.log.Debug().Str("id", mine.ID).Msg("Restored own RSVP")
	}
	if s.session.IsAdmin() {
		s.rsvps.ListAll(ctx)
	}
}

// Guest returns the signed-in guest
func (s *Site) Guest() (session.GuestState, bool) { return s.session.Guest() }

// IsAdmin reports whether the admin session is active
func (s *Site) IsAdmin() bool { return s.session.IsAdmin() }

// Login signs a guest in, creating the account if needed
func (s *Site) Login(ctx context.Context, creds models.Credentials) (auth.Result, error) {
	return s.session.Login(ctx, creds)
}

// Logout ends the guest and admin sessions
func (s *Site) Logout() { s.session.Logout() }

// EnterAdmin elevates with the couple's code
func (s *Site) EnterAdmin(ctx context.Context, code string) bool {
	return s.session.EnterAdmin(ctx, code)
}

// ExitAdmin drops admin rights, keeping the guest signed in
func (s *Site) ExitAdmin() { s.session.ExitAdmin() }

// SubmitRSVP sends a new RSVP
func (s *Site) SubmitRSVP(ctx context.Context, req models.RSVPRequest) (models.RSVP, error) {
	return s.rsvps.Submit(ctx, req)
}

// MyRSVP returns this client's RSVP
func (s *Site) MyRSVP() (models.RSVP, bool) { return s.rsvps.Mine() }

// RefreshMyRSVP reloads this client's RSVP from the server
func (s *Site) RefreshMyRSVP(ctx context.Context) (models.RSVP, bool) {
	return s.rsvps.RefreshMineFromStore(ctx)
}

// RSVPs returns the cached admin list. It is empty unless admin mode is on.
func (s *Site) RSVPs() []models.RSVP {
	if !s.session.IsAdmin() {
		return []models.RSVP{}
	}
	return s.rsvps.All()
}

// RSVPsByStatus returns the cached admin list filtered by status
func (s *Site) RSVPsByStatus(status models.RSVPStatus) []models.RSVP {
	if !s.session.IsAdmin() {
		return []models.RSVP{}
	}
	return s.rsvps.ByStatus(status)
}

// Summary counts the cached admin list
func (s *Site) Summary() models.RSVPSummary {
	if !s.session.IsAdmin() {
		return models.RSVPSummary{}
	}
	return s.rsvps.Summary()
}

// FetchRSVPs reloads the admin list from the server
func (s *Site) FetchRSVPs(ctx context.Context) []models.RSVP { return s.rsvps.ListAll(ctx) }

// UpdateRSVPStatus approves or rejects an RSVP
func (s *Site) UpdateRSVPStatus(ctx context.Context, id string, status models.RSVPStatus) (models.RSVP, error) {
	return s.rsvps.UpdateStatus(ctx, id, status)
}

// Couple returns the names of the bride and groom
func (s *Site) Couple() (string, string) { return s.config.BrideName, s.config.GroomName }

// Countdown returns the time left until the ceremony, zero once it has begun
func (s *Site) Countdown(now time.Time) time.Duration {
	left := s.config.WeddingDate.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
