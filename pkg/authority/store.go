package authority

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when no record matches. The authority
// translates it into the operation-specific error.
var ErrNotFound = errors.New("not found")

// UserStore handles persistence of user accounts.
type UserStore interface {
	FindByIdentifier(identifier string) (*User, error)
	FindByID(id uuid.UUID) (*User, error)
	CreateFromCredentials(credentials Credentials) (*User, error)
}

// SessionStore handles persistence of sessions, keyed by their current
// certificate bytes.
type SessionStore interface {
	FindByCertificate(cert []byte) (*Session, error)
	Insert(session *Session) error

	// UpdateByCertificate atomically replaces the certificate and expiry of
	// the session whose stored certificate equals oldCert, byte for byte.
	// It reports false when no session matched: two refreshes racing on the
	// same prior certificate can never both succeed.
	UpdateByCertificate(oldCert []byte, newCert []byte, expiresAt time.Time) (bool, error)

	Delete(cert []byte) error
}
