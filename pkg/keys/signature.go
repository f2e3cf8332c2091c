package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Signature wraps a raw signature byte sequence. The verification scheme is
// chosen by the public key's mechanism: ECDSA P-256 signs the SHA-256 digest
// of the payload (ASN.1 DER encoded), ed25519 signs the payload directly.
type Signature struct {
	bytes []byte
}

func NewSignature(raw []byte) Signature {
	return Signature{bytes: raw}
}

func (s Signature) Bytes() []byte {
	return s.bytes
}

// Sign produces a signature over payload with the given private key.
func Sign(payload []byte, key crypto.PrivateKey) (Signature, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		hash := sha256.Sum256(payload)
		raw, err := ecdsa.SignASN1(rand.Reader, k, hash[:])
		if err != nil {
			return Signature{}, fmt.Errorf("failed to sign payload: %v", err)
		}
		return Signature{bytes: raw}, nil
	case ed25519.PrivateKey:
		return Signature{bytes: ed25519.Sign(k, payload)}, nil
	}
	return Signature{}, fmt.Errorf("%w: %T", ErrUnknownMechanism, key)
}

// IsValidFor reports whether the signature verifies over payload with the
// given public key. Any decoding failure counts as invalid.
func (s Signature) IsValidFor(payload []byte, pub PublicKey) bool {
	key, err := pub.Key()
	if err != nil {
		return false
	}

	switch k := key.(type) {
	case *ecdsa.PublicKey:
		hash := sha256.Sum256(payload)
		return ecdsa.VerifyASN1(k, hash[:], s.bytes)
	case ed25519.PublicKey:
		return ed25519.Verify(k, payload, s.bytes)
	}
	return false
}
