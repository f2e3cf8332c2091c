package certificate

import (
	"fmt"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Validator verifies certificate wire bytes against a set of trusted issuer
// keys. An empty set fails closed: nothing validates.
type Validator[P any] struct {
	trustedKeys []keys.PublicKey
}

func NewValidator[P any](trustedKeys ...keys.PublicKey) *Validator[P] {
	return &Validator[P]{trustedKeys: trustedKeys}
}

// DeserializeAndValidate parses the wire form, recomputes the canonical byte
// sequence, and returns the certificate only if the embedded signature
// verifies against a trusted issuer key. Parse failures surface as
// ErrMalformedCertificate, verification failures as ErrInvalidCertificate.
func (v *Validator[P]) DeserializeAndValidate(wire []byte) (*Certificate[P], error) {
	cert, content, signatureBytes, err := parse[P](wire)
	if err != nil {
		return nil, err
	}

	issuer, found := v.trustedKey(cert.issuerKey)
	if !found {
		return nil, fmt.Errorf("%w: issuer key %s is not trusted", ErrInvalidCertificate, cert.issuerKey.Fingerprint())
	}

	if !keys.NewSignature(signatureBytes).IsValidFor(content, issuer) {
		return nil, fmt.Errorf("%w: signature does not verify", ErrInvalidCertificate)
	}

	return &cert, nil
}

func (v *Validator[P]) trustedKey(issuer keys.PublicKey) (keys.PublicKey, bool) {
	for _, trusted := range v.trustedKeys {
		if trusted.Equal(issuer) {
			return trusted, true
		}
	}
	return keys.PublicKey{}, false
}
