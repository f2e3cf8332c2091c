package certificate

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Canonical wire layout. Every variable-length field carries a 4-byte
// big-endian length prefix, in this fixed order:
//
//	issuer mechanism, issuer key bytes,
//	client mechanism, client key bytes,
//	client id, serial (16 bytes), expiry (8-byte big-endian unix seconds),
//	roles, payload JSON,
//	signature
//
// The signature is computed over all preceding bytes. Length prefixes remove
// any ambiguity between adjacent fields, so two different certificates can
// never share a canonical byte sequence; the serial makes even re-issuance
// over identical fields produce distinct bytes.

func writeField(buf *bytes.Buffer, field []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(field)))
	buf.Write(length[:])
	buf.Write(field)
}

// content serializes every field except the signature.
func (c Certificate[P]) content() ([]byte, error) {
	payload, err := json.Marshal(c.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't serialize payload: %v", ErrCertificateCreation, err)
	}

	var expiry [8]byte
	binary.BigEndian.PutUint64(expiry[:], uint64(c.expiresAt.Unix()))

	buf := new(bytes.Buffer)
	writeField(buf, []byte(c.issuerKey.Mechanism))
	writeField(buf, c.issuerKey.Bytes)
	writeField(buf, []byte(c.clientKey.Mechanism))
	writeField(buf, c.clientKey.Bytes)
	writeField(buf, []byte(c.clientID))
	writeField(buf, c.serial[:])
	writeField(buf, expiry[:])
	writeField(buf, c.roles.encode())
	writeField(buf, payload)
	return buf.Bytes(), nil
}

type wireReader struct {
	wire   []byte
	offset int
}

func (r *wireReader) readField() ([]byte, error) {
	if r.offset+4 > len(r.wire) {
		return nil, fmt.Errorf("%w: truncated length prefix", ErrMalformedCertificate)
	}
	length := int(binary.BigEndian.Uint32(r.wire[r.offset : r.offset+4]))
	r.offset += 4

	if r.offset+length > len(r.wire) {
		return nil, fmt.Errorf("%w: field exceeds wire length", ErrMalformedCertificate)
	}
	field := r.wire[r.offset : r.offset+length]
	r.offset += length
	return field, nil
}

// parse splits the wire form back into an envelope, the signed content bytes,
// and the signature bytes. No verification happens here.
func parse[P any](wire []byte) (cert Certificate[P], content []byte, signature []byte, err error) {
	reader := &wireReader{wire: wire}

	fields := make([][]byte, 9)
	for i := range fields {
		if fields[i], err = reader.readField(); err != nil {
			return
		}
	}
	contentEnd := reader.offset

	if signature, err = reader.readField(); err != nil {
		return
	}
	if reader.offset != len(wire) {
		err = fmt.Errorf("%w: trailing bytes after signature", ErrMalformedCertificate)
		return
	}

	cert.issuerKey.Mechanism = keys.Mechanism(fields[0])
	cert.issuerKey.Bytes = fields[1]
	cert.clientKey.Mechanism = keys.Mechanism(fields[2])
	cert.clientKey.Bytes = fields[3]
	cert.clientID = string(fields[4])
	if cert.serial, err = uuid.FromBytes(fields[5]); err != nil {
		err = fmt.Errorf("%w: bad serial: %v", ErrMalformedCertificate, err)
		return
	}
	if len(fields[6]) != 8 {
		err = fmt.Errorf("%w: bad expiry field length %d", ErrMalformedCertificate, len(fields[6]))
		return
	}
	cert.expiresAt = time.Unix(int64(binary.BigEndian.Uint64(fields[6])), 0)
	if cert.roles, err = decodeRoleSet(fields[7]); err != nil {
		return
	}
	if err = json.Unmarshal(fields[8], &cert.payload); err != nil {
		err = fmt.Errorf("%w: couldn't deserialize payload: %v", ErrMalformedCertificate, err)
		return
	}
	cert.wire = wire

	content = wire[:contentEnd]
	return
}
