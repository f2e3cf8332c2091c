// Package keys defines the public key encoding shared by the authority and
// its clients. A key always travels together with the name of its mechanism
// (the algorithm it belongs to), so that both sides can reconstruct a usable
// key object from stored bytes without guessing.
package keys

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	ErrUnknownMechanism = errors.New("unknown key mechanism")
	ErrMalformedKey     = errors.New("malformed key bytes")
)

// Mechanism names the algorithm a public key belongs to. Only registered
// mechanisms are understood; everything else fails with ErrUnknownMechanism.
type Mechanism string

const (
	MechanismECDSAP256 Mechanism = "ecdsa-p256"
	MechanismEd25519   Mechanism = "ed25519"
)

func (m Mechanism) registered() bool {
	switch m {
	case MechanismECDSAP256, MechanismEd25519:
		return true
	}
	return false
}

// PublicKey is the canonical stored form of a client or issuer key: the
// mechanism name plus the PKIX (SubjectPublicKeyInfo) DER encoding.
type PublicKey struct {
	Mechanism Mechanism `json:"mechanism"`
	Bytes     []byte    `json:"key"`
}

// FromCryptoKey derives the canonical encoding of a crypto public key.
func FromCryptoKey(key crypto.PublicKey) (PublicKey, error) {
	var mechanism Mechanism
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return PublicKey{}, fmt.Errorf("%w: unsupported curve %s", ErrUnknownMechanism, k.Curve.Params().Name)
		}
		mechanism = MechanismECDSAP256
	case ed25519.PublicKey:
		mechanism = MechanismEd25519
	default:
		return PublicKey{}, fmt.Errorf("%w: %T", ErrUnknownMechanism, key)
	}

	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	return PublicKey{Mechanism: mechanism, Bytes: der}, nil
}

// Key reconstructs the usable crypto key from the stored encoding. The result
// is deterministic: the same mechanism and bytes always yield the same key,
// and a mechanism that doesn't match the encoded key type is rejected.
func (p PublicKey) Key() (crypto.PublicKey, error) {
	if !p.Mechanism.registered() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMechanism, p.Mechanism)
	}

	key, err := x509.ParsePKIXPublicKey(p.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	switch k := key.(type) {
	case *ecdsa.PublicKey:
		if p.Mechanism != MechanismECDSAP256 || k.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: key bytes do not match mechanism %q", ErrMalformedKey, p.Mechanism)
		}
		return k, nil
	case ed25519.PublicKey:
		if p.Mechanism != MechanismEd25519 {
			return nil, fmt.Errorf("%w: key bytes do not match mechanism %q", ErrMalformedKey, p.Mechanism)
		}
		return k, nil
	}
	return nil, fmt.Errorf("%w: unsupported key type", ErrMalformedKey)
}

// Equal reports whether two encoded keys are the same key.
func (p PublicKey) Equal(other PublicKey) bool {
	return p.Mechanism == other.Mechanism && bytes.Equal(p.Bytes, other.Bytes)
}

// Fingerprint returns a short base58 digest of the key bytes, for log lines
// and human comparison. It is not a security boundary.
func (p PublicKey) Fingerprint() string {
	sum := sha256.Sum256(p.Bytes)
	return base58.Encode(sum[:8])
}
