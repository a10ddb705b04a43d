// Package domain defines the typed identifiers shared across features.
//
// IDs are distinct named types so the compiler rejects cross-type
// assignment (a ProfileID can never be passed where a UserID is
// expected). Parse functions enforce the format invariants at trust
// boundaries; everything past a Parse call can assume a valid ID.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "safeband/pkg/domain-errors"
)

// UserID identifies a caregiver account.
type UserID uuid.UUID

// ProfileID identifies a child profile owned by a caregiver.
type ProfileID uuid.UUID

// ZoneID identifies a safe zone within a profile.
type ZoneID uuid.UUID

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id ZoneID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ZoneID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// The UUID-backed IDs marshal as canonical UUID strings. Named types do
// not inherit uuid.UUID's text marshaling, so it is restated here.

func (id UserID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ProfileID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ZoneID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ProfileID) UnmarshalText(b []byte) error {
	parsed, err := ParseProfileID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ZoneID) UnmarshalText(b []byte) error {
	parsed, err := ParseZoneID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID parses and validates a caregiver account ID.
func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user id")
	return UserID(u), err
}

// ParseProfileID parses and validates a child profile ID.
func ParseProfileID(raw string) (ProfileID, error) {
	u, err := parseUUID(raw, "profile id")
	return ProfileID(u), err
}

// ParseZoneID parses and validates a safe zone ID.
func ParseZoneID(raw string) (ZoneID, error) {
	u, err := parseUUID(raw, "zone id")
	return ZoneID(u), err
}

func parseUUID(raw, label string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be the nil UUID")
	}
	return u, nil
}

// BraceletID is the human-readable, batch-scoped identifier engraved on a
// physical bracelet, e.g. "BF-001". The format is fixed by the engraving
// process: 2-5 uppercase letters, a dash, then 3-4 digits.
type BraceletID string

var braceletIDPattern = regexp.MustCompile(`^[A-Z]{2,5}-\d{3,4}$`)

// ParseBraceletID validates the engraved identifier format.
func ParseBraceletID(raw string) (BraceletID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "bracelet id is required")
	}
	if !braceletIDPattern.MatchString(raw) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "bracelet id must match PREFIX-NNN (2-5 uppercase letters, 3-4 digits)")
	}
	return BraceletID(raw), nil
}

func (id BraceletID) String() string { return string(id) }

// BatchID names a manufacturing batch. Batches namespace the sequential
// numeric portion of bracelet IDs.
type BatchID string

var batchIDPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,31}$`)

// ParseBatchID validates a manufacturing batch identifier.
func ParseBatchID(raw string) (BatchID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "batch id is required")
	}
	if !batchIDPattern.MatchString(raw) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "batch id must be 1-32 uppercase alphanumeric characters or dashes")
	}
	return BatchID(raw), nil
}

func (id BatchID) String() string { return string(id) }
