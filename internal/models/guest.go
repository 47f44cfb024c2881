package models

import (
	"bytes"
	"encoding/json"
)

// DefaultGuestName is used when a guest signs in without giving a name
const DefaultGuestName = "Guest"

// GuestProfile is the user profile returned by the remote API. Fields the
// client does not know about are kept in Extra so a persisted profile
// round-trips unchanged.
type GuestProfile struct {
	ID    string
	Name  string
	Email string
	Extra map[string]json.RawMessage

	// idField remembers whether the server called it "_id" or "id"
	idField string
}

var profileKnownFields = []string{"_id", "id", "name", "email"}

// MarshalJSON writes the known fields on top of the preserved extra fields
func (p GuestProfile) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	set := func(key, value string) error {
		if value == "" {
			return nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}
	idField := p.idField
	if idField == "" {
		idField = "_id"
	}
	if err := set(idField, p.ID); err != nil {
		return nil, err
	}
	if err := set("name", p.Name); err != nil {
		return nil, err
	}
	if err := set("email", p.Email); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier. A null
// profile leaves p unchanged.
func (p *GuestProfile) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var profile GuestProfile
	for _, key := range profileKnownFields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			// non-string ids and names are kept as-is
			continue
		}
		switch key {
		case "_id", "id":
			if profile.ID == "" {
				profile.ID = s
				if key != "_id" {
					profile.idField = key
				}
				delete(raw, key)
			}
		case "name":
			profile.Name = s
			delete(raw, key)
		case "email":
			profile.Email = s
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		profile.Extra = raw
	}

	*p = profile
	return nil
}

// Credentials is what a guest types into the sign-in form
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// AuthResponse is the body of a successful register or login call
type AuthResponse struct {
	User  GuestProfile `json:"user"`
	Token string       `json:"token"`
}

// AdminTokenResponse is the body of a successful admin code exchange
type AdminTokenResponse struct {
	Token string `json:"token"`
}
