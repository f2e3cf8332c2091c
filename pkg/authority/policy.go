package authority

import (
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// ClientAccessPolicy gates which client application ids may use the
// authority at all.
type ClientAccessPolicy interface {
	IsAllowed(clientID string) bool
}

type ClientAccessPolicyFunc func(clientID string) bool

func (f ClientAccessPolicyFunc) IsAllowed(clientID string) bool { return f(clientID) }

// AllowAllClients accepts every client id.
var AllowAllClients ClientAccessPolicy = ClientAccessPolicyFunc(
	func(string) bool { return true },
)

// SessionCreationPolicy decides whether a user may obtain another session for
// a given client key.
type SessionCreationPolicy interface {
	MayCreateSession(userID uuid.UUID, publicKey keys.PublicKey) bool
}

type SessionCreationPolicyFunc func(userID uuid.UUID, publicKey keys.PublicKey) bool

func (f SessionCreationPolicyFunc) MayCreateSession(userID uuid.UUID, publicKey keys.PublicKey) bool {
	return f(userID, publicKey)
}

// AllowAllSessions places no limit on concurrent sessions.
var AllowAllSessions SessionCreationPolicy = SessionCreationPolicyFunc(
	func(uuid.UUID, keys.PublicKey) bool { return true },
)

// ExpiryCalculator determines session lifetimes and checks them.
type ExpiryCalculator interface {
	CalculateFor(user *User) time.Time
	IsExpired(expiresAt time.Time) bool
}

// FixedTTLExpiry gives every session the same lifetime. Clock is overridable
// for tests and defaults to time.Now.
type FixedTTLExpiry struct {
	TTL   time.Duration
	Clock func() time.Time
}

func NewFixedTTLExpiry(ttl time.Duration) FixedTTLExpiry {
	return FixedTTLExpiry{TTL: ttl, Clock: time.Now}
}

func (e FixedTTLExpiry) CalculateFor(*User) time.Time {
	return e.now().Add(e.TTL)
}

func (e FixedTTLExpiry) IsExpired(expiresAt time.Time) bool {
	return e.now().After(expiresAt)
}

func (e FixedTTLExpiry) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
