package models

import (
	"encoding/json"
	"testing"
)

func TestGuestProfileNullIsEmpty(t *testing.T) {
	var resp AuthResponse
	if err := json.Unmarshal([]byte(`{"user":null,"token":"t"}`), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.User.ID != "" || resp.User.Email != "" || len(resp.User.Extra) != 0 {
		t.Errorf("user = %#v, want empty profile", resp.User)
	}
	if resp.Token != "t" {
		t.Errorf("token = %q", resp.Token)
	}
}

func TestGuestProfileKeepsUnknownFields(t *testing.T) {
	var p GuestProfile
	if err := json.Unmarshal([]byte(`{"id":"u1","name":"Ana","email":"ana@x.io","plusOne":true}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.ID != "u1" || p.Name != "Ana" {
		t.Errorf("profile = %#v", p)
	}
	if string(p.Extra["plusOne"]) != "true" {
		t.Errorf("extra plusOne = %s", p.Extra["plusOne"])
	}
}
