package request

import (
	"crypto"
	"encoding/base64"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Signer signs outgoing requests with the client's private key.
type Signer struct {
	key crypto.PrivateKey
}

func NewSigner(key crypto.PrivateKey) *Signer {
	return &Signer{key: key}
}

// SignRequest sets the content digest for body (when non-empty), computes the
// signature over the canonical bytes, and attaches it as the signature
// header. The certificate header, if the request carries one, must be set
// before signing since it is part of the signed bytes.
func (s *Signer) SignRequest(r *http.Request, body []byte) error {
	if digest := ContentDigest(body); digest != "" {
		r.Header.Set(ContentDigestHeader, digest)
	}

	signedBytes := SignedBytes(r.Method, r.URL.Path, r.Header)
	signature, err := keys.Sign(signedBytes, s.key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %v", err)
	}

	r.Header.Set(SignatureHeader, base64.StdEncoding.EncodeToString(signature.Bytes()))
	return nil
}
