// Package request implements the request signing protocol between clients and
// the authority. A client signs a canonical byte sequence derived from the
// request line and a fixed set of headers with its private key; the verifier
// rebuilds the identical sequence from the inbound request and checks the
// signature against the public key bound to the presented certificate. This
// ties every authenticated request to the key holder that obtained the
// certificate, so an intercepted certificate is useless on its own.
package request

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
)

// Header names carried by signed requests. CertificateHeader and
// ContentDigestHeader are part of the signed byte sequence; SignatureHeader
// carries the signature itself and is never signed.
const (
	CertificateHeader   = "X-Certificate"
	ContentDigestHeader = "X-Content-Digest"
	SignatureHeader     = "X-Signature"
)

// signatureHeaders is the fixed enumeration of headers included in the
// canonical bytes, in canonical order. Signer and verifier must agree on this
// list exactly; headers outside it are never included.
var signatureHeaders = []string{
	CertificateHeader,
	ContentDigestHeader,
}

var (
	ErrMissingSignatureHeader = errors.New("missing signature header")
	ErrSignatureInvalid       = errors.New("request signature validation failed")
)

// SignedBytes builds the canonical byte sequence for a request: a 4-byte
// big-endian length followed by "<METHOD> <PATH>", then, for each enumerated
// signature header present, a 4-byte length followed by "<Name>:<value>".
// The result depends only on the method, path, and enumerated header values,
// never on the order headers arrived in.
func SignedBytes(method string, path string, header http.Header) []byte {
	bytes := appendChunk(nil, fmt.Sprintf("%s %s", method, path))
	for _, name := range signatureHeaders {
		value := header.Get(name)
		if value == "" {
			continue
		}
		bytes = appendChunk(bytes, fmt.Sprintf("%s:%s", name, value))
	}
	return bytes
}

func appendChunk(bytes []byte, chunk string) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(chunk)))
	return append(append(bytes, length[:]...), chunk...)
}

// ContentDigest returns the digest header value for a request body: the
// base64 SHA-256 of the body bytes. An empty body has no digest.
func ContentDigest(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}
