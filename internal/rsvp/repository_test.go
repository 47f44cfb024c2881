package rsvp

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"wedding-site/internal/api"
	"wedding-site/internal/apitest"
	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

type staticToken string

func (s staticToken) AdminToken() (string, bool) { return string(s), s != "" }

type recordingNotifier struct {
	submitted []models.RSVP
	changed   []models.RSVP
	err       error
}

func (n *recordingNotifier) RSVPSubmitted(_ context.Context, r models.RSVP) error {
	n.submitted = append(n.submitted, r)
	return n.err
}

func (n *recordingNotifier) RSVPStatusChanged(_ context.Context, r models.RSVP) error {
	n.changed = append(n.changed, r)
	return n.err
}

type fixture struct {
	srv     *apitest.Server
	backend *storage.MemoryBackend
	repo    *Repository
}

func newFixture(t *testing.T, tokens TokenSource) fixture {
	t.Helper()
	srv := apitest.New("code")
	t.Cleanup(srv.Close)
	backend := storage.NewMemory()
	client := api.NewClient(srv.URL, srv.Client(), zerolog.Nop())
	return fixture{
		srv:     srv,
		backend: backend,
		repo:    NewRepository(client, storage.New(backend), tokens, zerolog.Nop()),
	}
}

// adminToken logs in against the fake API to get a real admin token
func adminToken(t *testing.T, srv *apitest.Server) staticToken {
	t.Helper()
	token, err := api.NewClient(srv.URL, srv.Client(), zerolog.Nop()).AdminLogin(context.Background(), "code")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	return staticToken(token)
}

func TestSubmitThenRefreshFromPointer(t *testing.T) {
	f := newFixture(t, staticToken(""))
	ctx := context.Background()

	created, err := f.repo.Submit(ctx, models.RSVPRequest{Name: "Ana", Guests: 2, Message: "Yay", Dietary: "vegan"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id, _, _ := f.backend.Get(storage.KeyMyRSVPID); id != created.ID {
		t.Fatalf("stored pointer = %q, want %q", id, created.ID)
	}

	// a fresh repository on the same store, as after a restart
	client := api.NewClient(f.srv.URL, f.srv.Client(), zerolog.Nop())
	restarted := NewRepository(client, storage.New(f.backend), staticToken(""), zerolog.Nop())

	mine, ok := restarted.RefreshMineFromStore(ctx)
	if !ok {
		t.Fatal("own RSVP not found after restart")
	}
	if mine.Status != models.RSVPPending || mine.Guests != 2 {
		t.Errorf("mine = %+v, want PENDING with 2 guests", mine)
	}
	if got, _ := restarted.Mine(); got.ID != created.ID {
		t.Errorf("Mine() = %+v", got)
	}
}

func TestSubmitDefaultsGuestsAndPrepends(t *testing.T) {
	f := newFixture(t, staticToken(""))
	ctx := context.Background()

	first, _ := f.repo.Submit(ctx, models.RSVPRequest{Name: "Ana"})
	second, err := f.repo.Submit(ctx, models.RSVPRequest{Name: "Bruno", Guests: -3})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Guests != 1 || second.Guests != 1 {
		t.Errorf("guests = %d, %d; want 1, 1", first.Guests, second.Guests)
	}

	all := f.repo.All()
	if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
		t.Errorf("cached list = %+v, want most recent first", all)
	}
}

func TestSubmitValidationAndRejection(t *testing.T) {
	f := newFixture(t, staticToken(""))
	ctx := context.Background()

	_, err := f.repo.Submit(ctx, models.RSVPRequest{Name: "   ", Guests: 2})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("blank name err = %v", err)
	}
	if f.srv.TotalCalls() != 0 {
		t.Error("blank name reached the network")
	}

	f.srv.Fail(apitest.RouteCreateRSVP, http.StatusServiceUnavailable, "RSVPs are closed")
	_, err = f.repo.Submit(ctx, models.RSVPRequest{Name: "Ana"})

	var subErr *models.SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %v, want *SubmissionError", err)
	}
	if subErr.Error() != "RSVPs are closed" {
		t.Errorf("message = %q", subErr.Error())
	}
	if _, ok := f.repo.Mine(); ok {
		t.Error("failed submission became my RSVP")
	}
	if _, ok, _ := f.backend.Get(storage.KeyMyRSVPID); ok {
		t.Error("failed submission stored a pointer")
	}
}

func TestRefreshMineUnknownID(t *testing.T) {
	f := newFixture(t, staticToken(""))

	if _, ok := f.repo.RefreshMine(context.Background(), "does-not-exist"); ok {
		t.Error("unknown id reported found")
	}
	if _, ok := f.repo.RefreshMine(context.Background(), ""); ok {
		t.Error("empty id reported found")
	}
	if _, ok := f.repo.RefreshMineFromStore(context.Background()); ok {
		t.Error("missing pointer reported found")
	}
}

func TestListAllWithoutAdmin(t *testing.T) {
	f := newFixture(t, staticToken(""))

	list := f.repo.ListAll(context.Background())
	if list == nil || len(list) != 0 {
		t.Errorf("list = %#v, want empty", list)
	}
	if f.srv.TotalCalls() != 0 {
		t.Error("ListAll without token reached the network")
	}
}

func TestListAllFailureReturnsEmpty(t *testing.T) {
	f := newFixture(t, staticToken("forged"))
	f.srv.AddRSVP(models.RSVP{Name: "Ana", Guests: 1})

	if list := f.repo.ListAll(context.Background()); len(list) != 0 {
		t.Errorf("list = %+v, want empty on rejected token", list)
	}
}

func TestUpdateStatusWithoutAdmin(t *testing.T) {
	f := newFixture(t, staticToken(""))

	_, err := f.repo.UpdateStatus(context.Background(), "r1", models.RSVPApproved)

	var notAuth *models.NotAuthorizedError
	if !errors.As(err, &notAuth) {
		t.Fatalf("err = %v, want *NotAuthorizedError", err)
	}
	if f.srv.TotalCalls() != 0 {
		t.Errorf("made %d network calls", f.srv.TotalCalls())
	}
}

func TestAdminApprovesOwnRSVP(t *testing.T) {
	srv := apitest.New("code")
	defer srv.Close()
	srv.AddRSVP(models.RSVP{ID: "r0", Name: "Bruno", Guests: 3})
	srv.AddRSVP(models.RSVP{ID: "r1", Name: "Ana", Guests: 2})

	backend := storage.NewMemory()
	client := api.NewClient(srv.URL, srv.Client(), zerolog.Nop())
	repo := NewRepository(client, storage.New(backend), adminToken(t, srv), zerolog.Nop())
	notifier := &recordingNotifier{err: errors.New("whatsapp offline")}
	repo.SetNotifier(notifier)
	ctx := context.Background()

	if _, ok := repo.RefreshMine(ctx, "r1"); !ok {
		t.Fatal("RefreshMine(r1) failed")
	}
	if got := repo.ListAll(ctx); len(got) != 2 {
		t.Fatalf("ListAll = %+v", got)
	}

	updated, err := repo.UpdateStatus(ctx, "r1", models.RSVPApproved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.RSVPApproved {
		t.Errorf("updated = %+v", updated)
	}

	mine, _ := repo.Mine()
	if mine.Status != models.RSVPApproved {
		t.Errorf("my RSVP status = %s, want APPROVED", mine.Status)
	}
	for _, r := range repo.All() {
		want := models.RSVPPending
		if r.ID == "r1" {
			want = models.RSVPApproved
		}
		if r.Status != want {
			t.Errorf("cached %s status = %s, want %s", r.ID, r.Status, want)
		}
	}
	if len(notifier.changed) != 1 || notifier.changed[0].ID != "r1" {
		t.Errorf("notifications = %+v", notifier.changed)
	}
}

func TestUpdateStatusRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.tokens = adminToken(t, f.srv)

	_, err := f.repo.UpdateStatus(context.Background(), "missing", models.RSVPRejected)

	var upErr *models.UpdateError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpdateError", err)
	}
	if upErr.Error() != "RSVP not found" {
		t.Errorf("message = %q", upErr.Error())
	}

	_, err = f.repo.UpdateStatus(context.Background(), "missing", models.RSVPStatus("MAYBE"))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown status err = %v", err)
	}
}

func TestSummaryAndFilters(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.tokens = adminToken(t, f.srv)
	f.srv.AddRSVP(models.RSVP{Name: "Ana", Guests: 2, Status: models.RSVPApproved})
	f.srv.AddRSVP(models.RSVP{Name: "Bruno", Guests: 3, Status: models.RSVPPending})
	f.srv.AddRSVP(models.RSVP{Name: "Carla", Guests: 1, Status: models.RSVPRejected})
	f.srv.AddRSVP(models.RSVP{Name: "Duda", Guests: 4, Status: models.RSVPApproved})

	f.repo.ListAll(context.Background())

	got := f.repo.Summary()
	want := models.RSVPSummary{Total: 4, Pending: 1, Approved: 2, Rejected: 1, ApprovedGuests: 6, RequestedGuests: 10}
	if got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
	if pending := f.repo.ByStatus(models.RSVPPending); len(pending) != 1 || pending[0].Name != "Bruno" {
		t.Errorf("pending = %+v", pending)
	}

	f.repo.Reset()
	if len(f.repo.All()) != 0 || f.repo.Summary().Total != 0 {
		t.Error("Reset left cached RSVPs")
	}
}

func TestSubmitNotifies(t *testing.T) {
	f := newFixture(t, staticToken(""))
	notifier := &recordingNotifier{}
	f.repo.SetNotifier(notifier)

	created, err := f.repo.Submit(context.Background(), models.RSVPRequest{Name: "Ana", Guests: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(notifier.submitted) != 1 || notifier.submitted[0].ID != created.ID {
		t.Errorf("submitted notifications = %+v", notifier.submitted)
	}
}

func TestServerDownKeepsLocalState(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.tokens = adminToken(t, f.srv)
	f.srv.AddRSVP(models.RSVP{ID: "r1", Name: "Ana", Guests: 2})
	notifier := &recordingNotifier{}
	f.repo.SetNotifier(notifier)
	ctx := context.Background()

	if got := f.repo.ListAll(ctx); len(got) != 1 {
		t.Fatalf("ListAll = %+v", got)
	}
	f.srv.Close()

	_, err := f.repo.Submit(ctx, models.RSVPRequest{Name: "Bruno", Guests: 3})
	var subErr *models.SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("Submit err = %v, want *SubmissionError", err)
	}
	if !errors.Is(err, models.ErrUnreachable) {
		t.Errorf("Submit err = %v, want ErrUnreachable in chain", err)
	}
	if _, ok, _ := f.backend.Get(storage.KeyMyRSVPID); ok {
		t.Error("RSVP id persisted after failed submit")
	}
	if _, ok := f.repo.Mine(); ok {
		t.Error("failed submit set own RSVP")
	}

	_, err = f.repo.UpdateStatus(ctx, "r1", models.RSVPApproved)
	var upErr *models.UpdateError
	if !errors.As(err, &upErr) {
		t.Fatalf("UpdateStatus err = %v, want *UpdateError", err)
	}
	if !errors.Is(err, models.ErrUnreachable) {
		t.Errorf("UpdateStatus err = %v, want ErrUnreachable in chain", err)
	}
	all := f.repo.All()
	if len(all) != 1 || all[0].Status != models.RSVPPending {
		t.Errorf("cached list changed after failed update: %+v", all)
	}

	if _, ok := f.repo.RefreshMine(ctx, "r1"); ok {
		t.Error("RefreshMine succeeded with the server down")
	}
	if list := f.repo.ListAll(ctx); list == nil || len(list) != 0 {
		t.Errorf("ListAll = %#v, want empty non-nil slice", list)
	}
	if len(notifier.submitted) != 0 || len(notifier.changed) != 0 {
		t.Errorf("notified on failure: %+v %+v", notifier.submitted, notifier.changed)
	}
}
