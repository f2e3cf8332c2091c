// Package certificate implements the signed certificate envelope issued by an
// authority: a client public key, client id, role set, and an arbitrary
// payload, bound together under the issuer's signature. The wire form is a
// canonical byte sequence, so a certificate survives a parse/verify round trip
// byte-identical and can be reused as an opaque session handle.
package certificate

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

var (
	// ErrMalformedCertificate means the wire bytes could not be parsed.
	ErrMalformedCertificate = errors.New("malformed certificate")
	// ErrInvalidCertificate means the bytes parsed but the signature does not
	// verify against any trusted issuer key, or the certificate is bound to
	// an unexpected client key.
	ErrInvalidCertificate = errors.New("invalid certificate")
	// ErrCertificateCreation means signing or serialization failed.
	ErrCertificateCreation = errors.New("certificate creation failed")
)

// Certificate is the immutable envelope. The payload type is opaque to this
// package; it only has to be JSON-serializable.
type Certificate[P any] struct {
	issuerKey keys.PublicKey
	clientKey keys.PublicKey
	clientID  string
	serial    uuid.UUID
	expiresAt time.Time
	roles     RoleSet
	payload   P
	wire      []byte
}

// Create builds an unsigned envelope. Sign produces the wire form.
//
// Every envelope carries a fresh serial inside the signed content, so two
// certificates over identical fields never share a wire form. Deterministic
// signature schemes (ed25519) would otherwise reproduce the exact bytes on
// re-issuance, and the bytes are what addresses a session.
func Create[P any](
	issuerKey keys.PublicKey,
	clientKey keys.PublicKey,
	clientID string,
	roles RoleSet,
	payload P,
	expiresAt time.Time,
) Certificate[P] {
	return Certificate[P]{
		issuerKey: issuerKey,
		clientKey: clientKey,
		clientID:  clientID,
		serial:    uuid.New(),
		expiresAt: expiresAt,
		roles:     roles,
		payload:   payload,
	}
}

func (c Certificate[P]) IssuerKey() keys.PublicKey { return c.issuerKey }
func (c Certificate[P]) ClientKey() keys.PublicKey { return c.clientKey }
func (c Certificate[P]) ClientID() string          { return c.clientID }
func (c Certificate[P]) Serial() uuid.UUID         { return c.serial }
func (c Certificate[P]) Roles() RoleSet            { return c.roles }
func (c Certificate[P]) Payload() P                { return c.payload }

// ExpiresAt is the issuance-time expiry, at second precision, baked into the
// signed content. Verifiers can check it offline; the authority's session
// record remains authoritative for refresh.
func (c Certificate[P]) ExpiresAt() time.Time { return c.expiresAt }

// Wire returns the exact signed bytes this certificate was parsed from, or
// nil for an envelope that hasn't been signed and validated yet.
func (c Certificate[P]) Wire() []byte { return c.wire }
