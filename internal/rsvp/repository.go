package rsvp

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

// API is the part of the remote API the repository needs
type API interface {
	CreateRSVP(ctx context.Context, req models.RSVPRequest) (models.RSVP, error)
	GetRSVP(ctx context.Context, id string) (models.RSVP, error)
	ListRSVPs(ctx context.Context, adminToken string) ([]models.RSVP, error)
	UpdateRSVPStatus(ctx context.Context, adminToken, id string, status models.RSVPStatus) (models.RSVP, error)
}

// TokenSource hands out the current admin token, if there is one
type TokenSource interface {
	AdminToken() (string, bool)
}

// Notifier is told about RSVP changes made from this client
type Notifier interface {
	RSVPSubmitted(ctx context.Context, rsvp models.RSVP) error
	RSVPStatusChanged(ctx context.Context, rsvp models.RSVP) error
}

// Repository holds the guest's own RSVP and, for admins, the full list
type Repository struct {
	mu       sync.RWMutex
	api      API
	store    *storage.Store
	tokens   TokenSource
	notifier Notifier
	log      zerolog.Logger

	mine *models.RSVP
	all  []models.RSVP
}

// NewRepository creates a new RSVP repository
func NewRepository(api API, store *storage.Store, tokens TokenSource, logger zerolog.Logger) *Repository {
	return &Repository{
		api:    api,
		store:  store,
		tokens: tokens,
		log:    logger.With().Str("component", "RSVP").Logger(),
		all:    []models.RSVP{},
	}
}

// SetNotifier sets who is told about submissions and status changes
func (r *Repository) SetNotifier(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier = n
}

// Submit creates a new RSVP. No sign-in is needed. On success the record
// becomes this client's RSVP and is put at the front of the cached list.
func (r *Repository) Submit(ctx context.Context, req models.RSVPRequest) (models.RSVP, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return models.RSVP{}, &models.ValidationError{Field: "name", Message: "name is required"}
	}
	if req.Guests < 1 {
		req.Guests = 1
	}

	created, err := r.api.CreateRSVP(ctx, req)
	if err != nil {
		if !errors.Is(err, models.ErrRejected) {
			r.log.Error().Err(err).Msg("Network error creating RSVP")
		}
		return models.RSVP{}, &models.SubmissionError{Message: models.UserMessage(err, "error creating RSVP"), Err: err}
	}

	r.mu.Lock()
	mine := created
	r.mine = &mine
	r.all = append([]models.RSVP{created}, r.all...)
	notifier := r.notifier
	r.mu.Unlock()

	if err := r.store.SetMyRSVPID(created.ID); err != nil {
		r.log.Warn().Err(err).Msg("Could not persist RSVP id")
	}

	r.notify(ctx, notifier, created, Notifier.RSVPSubmitted)
	return created, nil
}

// RefreshMine loads the RSVP with id as this client's own. Unknown ids and
// failures are logged and reported as not found.
func (r *Repository) RefreshMine(ctx context.Context, id string) (models.RSVP, bool) {
	if id == "" {
		return models.RSVP{}, false
	}

	rsvp, err := r.api.GetRSVP(ctx, id)
	if err != nil {
		r.log.Warn().Err(err).Str("id", id).Msg("Could not load own RSVP")
		return models.RSVP{}, false
	}

	r.mu.Lock()
	r.mine = &rsvp
	r.mu.Unlock()
	return rsvp, true
}

// RefreshMineFromStore reloads this client's RSVP from the persisted id
func (r *Repository) RefreshMineFromStore(ctx context.Context) (models.RSVP, bool) {
	id, ok, err := r.store.MyRSVPID()
	if err != nil {
		r.log.Warn().Err(err).Msg("Could not read RSVP id")
	}
	if !ok {
		return models.RSVP{}, false
	}
	return r.RefreshMine(ctx, id)
}

// ListAll fetches every RSVP and replaces the cached list. It needs an admin
// token; without one, or on any failure, it returns an empty list.
func (r *Repository) ListAll(ctx context.Context) []models.RSVP {
	token, ok := r.tokens.AdminToken()
	if !ok {
		return []models.RSVP{}
	}

	list, err := r.api.ListRSVPs(ctx, token)
	if err != nil {
		r.log.Error().Err(err).Msg("Could not load RSVPs")
		return []models.RSVP{}
	}

	r.mu.Lock()
	r.all = list
	r.mu.Unlock()

	r.log.Debug().Int("count", len(list)).Msg("Loaded RSVPs")
	return cloneList(list)
}

// UpdateStatus sets the status of an RSVP. It fails before any request when
// there is no admin token. The returned record replaces the cached copy and,
// if it is this client's own RSVP, that one too.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.RSVPStatus) (models.RSVP, error) {
	token, ok := r.tokens.AdminToken()
	if !ok {
		return models.RSVP{}, &models.NotAuthorizedError{Op: "update rsvp status"}
	}
	if !status.Valid() {
		return models.RSVP{}, &models.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	updated, err := r.api.UpdateRSVPStatus(ctx, token, id, status)
	if err != nil {
		return models.RSVP{}, &models.UpdateError{Message: models.UserMessage(err, "error updating status"), Err: err}
	}

	r.mu.Lock()
	for i := range r.all {
		if r.all[i].ID == id {
			r.all[i] = updated
		}
	}
	if r.mine != nil && r.mine.ID == id {
		mine := updated
		r.mine = &mine
	}
	notifier := r.notifier
	r.mu.Unlock()

	r.log.Info().Str("id", id).Str("status", string(updated.Status)).Msg("RSVP status updated")
	r.notify(ctx, notifier, updated, Notifier.RSVPStatusChanged)
	return updated, nil
}

func (r *Repository) notify(ctx context.Context, n Notifier, rsvp models.RSVP, send func(Notifier, context.Context, models.RSVP) error) {
	if n == nil {
		return
	}
	if err := send(n, ctx, rsvp); err != nil {
		r.log.Error().Err(err).Str("id", rsvp.ID).Msg("Error sending notification")
	}
}

// Mine returns this client's RSVP
func (r *Repository) Mine() (models.RSVP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.mine == nil {
		return models.RSVP{}, false
	}
	return *r.mine, true
}

// All returns the cached RSVP list
func (r *Repository) All() []models.RSVP {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneList(r.all)
}

// ByStatus returns cached RSVPs filtered by status
func (r *Repository) ByStatus(status models.RSVPStatus) []models.RSVP {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.RSVP
	for _, rsvp := range r.all {
		if rsvp.Status == status {
			result = append(result, rsvp)
		}
	}
	return result
}

// Summary counts the cached RSVPs by status
func (r *Repository) Summary() models.RSVPSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s models.RSVPSummary
	for _, rsvp := range r.all {
		s.Total++
		s.RequestedGuests += rsvp.Guests
		switch rsvp.Status {
		case models.RSVPPending:
			s.Pending++
		case models.RSVPApproved:
			s.Approved++
			s.ApprovedGuests += rsvp.Guests
		case models.RSVPRejected:
			s.Rejected++
		}
	}
	return s
}

// Reset forgets the cached RSVPs. Persisted state is left alone.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mine = nil
	r.all = []models.RSVP{}
}

func cloneList(list []models.RSVP) []models.RSVP {
	out := make([]models.RSVP, len(list))
	copy(out, list)
	return out
}
