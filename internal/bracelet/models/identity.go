package models

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
)

// Status is the lifecycle state of a bracelet identity.
type Status string

const (
	StatusFactoryLocked Status = "FACTORY_LOCKED"
	StatusInactive      Status = "INACTIVE"
	StatusActive        Status = "ACTIVE"
	StatusLost          Status = "LOST"
	StatusStolen        Status = "STOLEN"
	StatusDeactivated   Status = "DEACTIVATED"
)

// legalTransitions is the authoritative transition table. DEACTIVATED
// has no outgoing edges: it is the tombstone state.
var legalTransitions = map[Status][]Status{
	StatusFactoryLocked: {StatusInactive},
	StatusInactive:      {StatusActive},
	StatusActive:        {StatusLost, StatusStolen, StatusDeactivated},
	StatusLost:          {StatusActive, StatusStolen},
	StatusStolen:        {StatusActive},
	StatusDeactivated:   {},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusFactoryLocked, StatusInactive, StatusActive, StatusLost, StatusStolen, StatusDeactivated:
		return Status(raw), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown bracelet status")
}

// SecretTokenLength is the hex length of a bracelet secret (256 bits).
const SecretTokenLength = 64

func validSecretToken(token string) bool {
	if len(token) != SecretTokenLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// Identity is the aggregate root for a physical bracelet.
//
// Invariants:
//   - SecretToken is set exactly once at creation and never regenerated
//     while the status is anything but DEACTIVATED
//   - LinkedUserID/LinkedProfileID are non-nil iff the status is
//     ACTIVE, LOST, or STOLEN
//   - Records are never deleted; DEACTIVATED is the terminal tombstone
//
// All mutations go through the Can*/Apply* pairs inside a store Execute
// callback so the read-check-write is atomic per record.
type Identity struct {
	ID              id.BraceletID `json:"id"`
	SecretToken     string        `json:"-"`
	Status          Status        `json:"status"`
	BatchID         id.BatchID    `json:"batch_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	LinkedUserID    *id.UserID    `json:"linked_user_id,omitempty"`
	LinkedProfileID *id.ProfileID `json:"linked_profile_id,omitempty"`
}

// NewFactoryIdentity constructs a freshly provisioned, factory-locked
// identity record.
func NewFactoryIdentity(braceletID id.BraceletID, batchID id.BatchID, secretToken string, now time.Time) (*Identity, error) {
	if !validSecretToken(secretToken) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "secret token must be 64 hex characters")
	}
	return &Identity{
		ID:          braceletID,
		SecretToken: secretToken,
		Status:      StatusFactoryLocked,
		BatchID:     batchID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsLinked reports whether the bracelet is bound to a caregiver.
func (b *Identity) IsLinked() bool {
	return b.LinkedUserID != nil
}

// VerifyToken compares a presented secret against the stored one in
// constant time. Both sides are hashed first so the comparison cost is
// independent of where a mismatch occurs and of input length.
func (b *Identity) VerifyToken(presented string) bool {
	stored := sha256.Sum256([]byte(b.SecretToken))
	given := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(stored[:], given[:]) == 1
}

// CanUnlock checks the batch-unlock transition (FACTORY_LOCKED to
// INACTIVE). This transition is operator-initiated only.
func (b *Identity) CanUnlock() error {
	if !b.Status.CanTransitionTo(StatusInactive) {
		return dErrors.New(dErrors.CodeInvalidTransition, "bracelet cannot be unlocked from status "+string(b.Status))
	}
	return nil
}

// ApplyUnlock releases the bracelet for activation.
func (b *Identity) ApplyUnlock(now time.Time) {
	b.Status = StatusInactive
	b.UpdatedAt = now
}

// CanActivate checks the activation preconditions in precedence order:
// provisioning state first, then linkage, then general state. Token
// verification is separate (VerifyToken) so the caller controls when
// the constant-time compare happens.
func (b *Identity) CanActivate() error {
	if b.Status == StatusFactoryLocked {
		return dErrors.New(dErrors.CodeNotProvisioned, "bracelet has not been released for activation")
	}
	if b.Status != StatusInactive {
		if b.IsLinked() {
			return dErrors.New(dErrors.CodeAlreadyLinked, "bracelet is already linked to an account")
		}
		return dErrors.New(dErrors.CodeInvalidState, "bracelet cannot be activated from status "+string(b.Status))
	}
	return nil
}

// ApplyActivation binds the bracelet to a caregiver and profile.
func (b *Identity) ApplyActivation(userID id.UserID, profileID id.ProfileID, now time.Time) {
	b.LinkedUserID = &userID
	b.LinkedProfileID = &profileID
	b.Status = StatusActive
	b.UpdatedAt = now
}

// CanReport checks a caregiver-reported status transition against the
// transition table. ACTIVE is reportable only as the LOST/STOLEN
// recovery edge; an INACTIVE bracelet reaches ACTIVE exclusively
// through token activation, which is also what establishes the linkage.
func (b *Identity) CanReport(next Status) error {
	switch next {
	case StatusFactoryLocked, StatusInactive:
		// Reachable only through provisioning and batch unlock; a status
		// report can never move a bracelet backwards.
		return dErrors.New(dErrors.CodeInvalidTransition, "status "+string(next)+" cannot be reported")
	case StatusActive:
		if b.Status == StatusInactive {
			return dErrors.New(dErrors.CodeInvalidTransition, "bracelet must be activated with its secret token")
		}
	}
	if !b.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot transition from "+string(b.Status)+" to "+string(next))
	}
	return nil
}

// ApplyReport applies a reported status. Deactivation clears the
// linkage so the record satisfies the linkage invariant in its
// tombstone state.
func (b *Identity) ApplyReport(next Status, now time.Time) {
	b.Status = next
	if next == StatusDeactivated {
		b.LinkedUserID = nil
		b.LinkedProfileID = nil
	}
	b.UpdatedAt = now
}

// Clone returns a deep copy so stores can hand out records without
// aliasing their internal state.
func (b *Identity) Clone() *Identity {
	clone := *b
	if b.LinkedUserID != nil {
		u := *b.LinkedUserID
		clone.LinkedUserID = &u
	}
	if b.LinkedProfileID != nil {
		p := *b.LinkedProfileID
		clone.LinkedProfileID = &p
	}
	return &clone
}
