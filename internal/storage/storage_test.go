package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"wedding-site/internal/models"
)

func openBackends(t *testing.T) map[string]func() Backend {
	t.Helper()
	dir := t.TempDir()
	return map[string]func() Backend{
		"file": func() Backend {
			b, err := OpenFile(filepath.Join(dir, "session.json"))
			if err != nil {
				t.Fatalf("open file backend: %v", err)
			}
			return b
		},
		"sqlite": func() Backend {
			b, err := OpenSQLite(filepath.Join(dir, "session.db"))
			if err != nil {
				t.Fatalf("open sqlite backend: %v", err)
			}
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
	}
}

func TestGuestProfileSurvivesReload(t *testing.T) {
	var profile models.GuestProfile
	raw := `{"_id":"u1","name":"Ana","email":"ana@example.com","role":"guest","table":7}`
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}

	for name, open := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := New(open())
			if err := store.SetGuestProfile(profile); err != nil {
				t.Fatalf("SetGuestProfile: %v", err)
			}
			if err := store.SetGuestToken("tok-1"); err != nil {
				t.Fatalf("SetGuestToken: %v", err)
			}

			reloaded := New(open())
			got, ok, err := reloaded.GuestProfile()
			if err != nil || !ok {
				t.Fatalf("GuestProfile() = %v, %v, %v", got, ok, err)
			}
			if !reflect.DeepEqual(got, profile) {
				t.Errorf("profile after reload = %+v, want %+v", got, profile)
			}
			token, ok, err := reloaded.GuestToken()
			if err != nil || !ok || token != "tok-1" {
				t.Errorf("GuestToken() = %q, %v, %v", token, ok, err)
			}
		})
	}
}

func TestCorruptProfileReadsAsAbsent(t *testing.T) {
	backend := NewMemory()
	_ = backend.Set(KeyGuestProfile, "{not json")
	store := New(backend)

	profile, ok, err := store.GuestProfile()
	if ok {
		t.Fatalf("corrupt profile reported present: %+v", profile)
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}

	_ = backend.Set(KeyGuestProfile, "null")
	if _, ok, err := store.GuestProfile(); ok || err == nil {
		t.Errorf("null profile: ok=%v err=%v, want absent with error", ok, err)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	b, err := OpenFile(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("OpenFile err = %v, want ErrCorrupt", err)
	}
	if _, ok, _ := b.Get(KeyGuestToken); ok {
		t.Error("corrupt file produced values")
	}
	if err := b.Set(KeyGuestToken, "t"); err != nil {
		t.Fatalf("Set after corrupt load: %v", err)
	}
	if v, ok, _ := b.Get(KeyGuestToken); !ok || v != "t" {
		t.Errorf("Get = %q, %v", v, ok)
	}
}

func TestAdminFlag(t *testing.T) {
	store := New(NewMemory())

	if elevated, err := store.AdminFlag(); err != nil || elevated {
		t.Fatalf("empty store AdminFlag() = %v, %v", elevated, err)
	}
	_ = store.SetAdminFlag(true)
	if elevated, _ := store.AdminFlag(); !elevated {
		t.Error("AdminFlag() = false after SetAdminFlag(true)")
	}
	_ = store.SetAdminFlag(false)
	if _, ok, _ := store.backend.Get(KeyAdminFlag); ok {
		t.Error("SetAdminFlag(false) left the key behind")
	}
}

func TestClearRemovesEveryKey(t *testing.T) {
	backend := NewMemory()
	for _, key := range AllKeys {
		_ = backend.Set(key, "x")
	}
	store := New(backend)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	for _, key := range AllKeys {
		if _, ok, _ := backend.Get(key); ok {
			t.Errorf("key %s survived Clear", key)
		}
	}
}

type brokenBackend struct{}

var errDisk = errors.New("disk full")

func (brokenBackend) Get(string) (string, bool, error) { return "", false, errDisk }
func (brokenBackend) Set(string, string) error         { return errDisk }
func (brokenBackend) Delete(string) error              { return errDisk }

func TestBackendFailuresAreReported(t *testing.T) {
	store := New(brokenBackend{})

	if _, ok, err := store.MyRSVPID(); ok || !errors.Is(err, errDisk) {
		t.Errorf("MyRSVPID() ok=%v err=%v", ok, err)
	}
	if err := store.SetAdminToken("t"); !errors.Is(err, errDisk) {
		t.Errorf("SetAdminToken err = %v", err)
	}
	if err := store.Clear(); !errors.Is(err, errDisk) {
		t.Errorf("Clear err = %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Error("expected error for unknown backend")
	}
	b, err := Open("memory", "")
	if err != nil || b == nil {
		t.Fatalf("Open(memory) = %v, %v", b, err)
	}
}
