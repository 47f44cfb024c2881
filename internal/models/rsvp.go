package models

import "strings"

// RSVPStatus represents the approval state of an RSVP
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "PENDING"
	RSVPApproved RSVPStatus = "APPROVED"
	RSVPRejected RSVPStatus = "REJECTED"
)

// ParseRSVPStatus accepts any casing of a known status
func ParseRSVPStatus(s string) (RSVPStatus, bool) {
	status := RSVPStatus(strings.ToUpper(strings.TrimSpace(s)))
	return status, status.Valid()
}

// Valid reports whether the status is one the API understands
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPApproved, RSVPRejected:
		return true
	}
	return false
}

// Terminal reports whether the guest-facing flow is finished for this status
func (s RSVPStatus) Terminal() bool {
	return s == RSVPApproved || s == RSVPRejected
}

// RSVP is a single attendance request as stored by the remote API
type RSVP struct {
	ID      string     `json:"_id"`
	Name    string     `json:"name"`
	Guests  int        `json:"guests"`
	Message string     `json:"message"`
	Dietary string     `json:"dietary"`
	Status  RSVPStatus `json:"status"`
}

// RSVPRequest is the body of a new RSVP submission
type RSVPRequest struct {
	Name    string `json:"name"`
	Guests  int    `json:"guests"`
	Message string `json:"message"`
	Dietary string `json:"dietary"`
}

// StatusUpdate is the body of an admin status change
type StatusUpdate struct {
	Status RSVPStatus `json:"status"`
}

// RSVPSummary aggregates an RSVP collection for the moderation view
type RSVPSummary struct {
	Total           int
	Pending         int
	Approved        int
	Rejected        int
	ApprovedGuests  int
	RequestedGuests int
}
