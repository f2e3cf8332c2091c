package request

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Validator verifies inbound signed requests.
type Validator struct{}

// SignedBytesFrom rebuilds the canonical byte sequence from an inbound
// request, using the same fixed header enumeration the signer used.
func (Validator) SignedBytesFrom(r *http.Request) []byte {
	return SignedBytes(r.Method, r.URL.Path, r.Header)
}

// Signature extracts the transmitted signature from the request header.
// Absence is a distinct failure from an invalid signature.
func (Validator) Signature(r *http.Request) (keys.Signature, error) {
	header := r.Header.Get(SignatureHeader)
	if header == "" {
		return keys.Signature{}, ErrMissingSignatureHeader
	}
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return keys.Signature{}, fmt.Errorf("%w: signature header is not base64: %v", ErrSignatureInvalid, err)
	}
	return keys.NewSignature(raw), nil
}

// Validate checks the request signature against the given public key, and
// that the content digest header (when present) matches the actual body. The
// digest is part of the signed bytes, so a verified signature plus a matching
// digest rules out body tampering.
func (v Validator) Validate(r *http.Request, body []byte, pub keys.PublicKey) error {
	signature, err := v.Signature(r)
	if err != nil {
		return err
	}

	if digest := r.Header.Get(ContentDigestHeader); digest != "" || len(body) > 0 {
		expected := ContentDigest(body)
		if subtle.ConstantTimeCompare([]byte(digest), []byte(expected)) != 1 {
			return fmt.Errorf("%w: content digest mismatch", ErrSignatureInvalid)
		}
	}

	if !signature.IsValidFor(v.SignedBytesFrom(r), pub) {
		return fmt.Errorf("%w: signature does not verify with client key %s", ErrSignatureInvalid, pub.Fingerprint())
	}
	return nil
}
