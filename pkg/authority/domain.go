package authority

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/attest/pkg/certificate"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// User is the authority-side account record. Secret is a bcrypt hash; the
// plaintext password only ever exists inside Credentials.
type User struct {
	ID         uuid.UUID
	Identifier string
	Secret     []byte
	Roles      certificate.RoleSet
}

func (u *User) PasswordMatches(password string) bool {
	return bcrypt.CompareHashAndPassword(u.Secret, []byte(password)) == nil
}

// Session records the latest certificate issued to one client instance. A
// session is addressable by its current certificate bytes: refresh overwrites
// Certificate and ExpiresAt in place, which is what makes superseded
// certificate bytes permanently unusable.
type Session struct {
	UserID      uuid.UUID
	ClientID    string
	PublicKey   keys.PublicKey
	Certificate []byte
	ExpiresAt   time.Time
}

// Credentials transport a sign-up or sign-in attempt. They are consumed once
// and never persisted.
type Credentials struct {
	Identifier string         `json:"identifier"`
	Password   string         `json:"password"`
	ClientID   string         `json:"clientId"`
	PublicKey  keys.PublicKey `json:"publicKey"`
}

// PayloadFunc derives the signable certificate payload from a user. What ends
// up inside the certificate is entirely the deployment's choice.
type PayloadFunc[P any] func(user *User) (P, error)
