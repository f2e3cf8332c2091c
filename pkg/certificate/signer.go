package certificate

import (
	"bytes"
	"crypto"
	"fmt"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Sign serializes the envelope canonically, signs it with the issuer's
// private key, and appends the signature block, producing the wire form.
func Sign[P any](cert Certificate[P], issuerKey crypto.PrivateKey) ([]byte, error) {
	content, err := cert.content()
	if err != nil {
		return nil, err
	}

	signature, err := keys.Sign(content, issuerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateCreation, err)
	}

	wire := bytes.NewBuffer(content)
	writeField(wire, signature.Bytes())
	return wire.Bytes(), nil
}
