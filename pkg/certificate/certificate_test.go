package certificate_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/attest/pkg/certificate"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

type testPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type certFixture struct {
	issuerKey ed25519.PrivateKey
	issuerPub keys.PublicKey
	clientPub keys.PublicKey
	expiresAt time.Time
	cert      certificate.Certificate[testPayload]
	wire      []byte
}

func newFixture(t *testing.T) *certFixture {
	t.Helper()

	issuerPublic, issuerKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate issuer key: %v", err)
	}
	issuerPub, err := keys.FromCryptoKey(issuerPublic)
	if err != nil {
		t.Fatalf("failed to encode issuer key: %v", err)
	}

	clientKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate client key: %v", err)
	}
	clientPub, err := keys.FromCryptoKey(&clientKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to encode client key: %v", err)
	}

	expiresAt := time.Unix(time.Now().Add(time.Hour).Unix(), 0)
	cert := certificate.Create(
		issuerPub,
		clientPub,
		"test-client",
		certificate.NewRoleSet("admin", "user"),
		testPayload{Name: "alice", Email: "alice@example.com"},
		expiresAt,
	)
	wire, err := certificate.Sign(cert, issuerKey)
	if err != nil {
		t.Fatalf("failed to sign certificate: %v", err)
	}

	return &certFixture{
		issuerKey: issuerKey,
		issuerPub: issuerPub,
		clientPub: clientPub,
		expiresAt: expiresAt,
		cert:      cert,
		wire:      wire,
	}
}

func TestCertificate_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	validator := certificate.NewValidator[testPayload](f.issuerPub)
	decoded, err := validator.DeserializeAndValidate(f.wire)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	if !decoded.IssuerKey().Equal(f.issuerPub) {
		t.Error("issuer key changed on round trip")
	}
	if !decoded.ClientKey().Equal(f.clientPub) {
		t.Error("client key changed on round trip")
	}
	if decoded.ClientID() != "test-client" {
		t.Errorf("client id = %q, want %q", decoded.ClientID(), "test-client")
	}
	if !decoded.Roles().Equal(certificate.NewRoleSet("admin", "user")) {
		t.Errorf("roles changed on round trip: %v", decoded.Roles())
	}
	if decoded.Payload() != (testPayload{Name: "alice", Email: "alice@example.com"}) {
		t.Errorf("payload changed on round trip: %+v", decoded.Payload())
	}
	if decoded.Serial() != f.cert.Serial() {
		t.Errorf("serial changed on round trip: %s vs %s", decoded.Serial(), f.cert.Serial())
	}
	if !decoded.ExpiresAt().Equal(f.expiresAt) {
		t.Errorf("expiry changed on round trip: %s vs %s", decoded.ExpiresAt(), f.expiresAt)
	}
}

func TestCertificate_EachIssuanceIsUnique(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// identical fields, identical expiry, deterministic ed25519 issuer:
	// the serial still has to make the wire bytes differ
	reissued := certificate.Create(
		f.issuerPub,
		f.clientPub,
		"test-client",
		certificate.NewRoleSet("admin", "user"),
		testPayload{Name: "alice", Email: "alice@example.com"},
		f.expiresAt,
	)
	wire, err := certificate.Sign(reissued, f.issuerKey)
	if err != nil {
		t.Fatalf("failed to sign certificate: %v", err)
	}

	if bytes.Equal(wire, f.wire) {
		t.Error("re-issuance over identical fields produced identical wire bytes")
	}
}

func TestCertificate_WireIsByteIdentical(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	validator := certificate.NewValidator[testPayload](f.issuerPub)
	decoded, err := validator.DeserializeAndValidate(f.wire)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	reused := decoded.Wire()
	if len(reused) != len(f.wire) {
		t.Fatalf("wire length changed: %d vs %d", len(reused), len(f.wire))
	}
	for i := range reused {
		if reused[i] != f.wire[i] {
			t.Fatalf("wire differs at byte %d", i)
		}
	}
}

func TestCertificate_TamperedByteFailsValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	validator := certificate.NewValidator[testPayload](f.issuerPub)

	// flipping any single byte must break either parsing or the signature
	for i := range f.wire {
		tampered := make([]byte, len(f.wire))
		copy(tampered, f.wire)
		tampered[i] ^= 0x01

		_, err := validator.DeserializeAndValidate(tampered)
		if err == nil {
			t.Fatalf("tampered byte %d still validated", i)
		}
		if !errors.Is(err, certificate.ErrInvalidCertificate) &&
			!errors.Is(err, certificate.ErrMalformedCertificate) {
			t.Fatalf("tampered byte %d: unexpected error %v", i, err)
		}
	}
}

func TestCertificate_EmptyTrustedKeySetFailsClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	validator := certificate.NewValidator[testPayload]()
	_, err := validator.DeserializeAndValidate(f.wire)
	if !errors.Is(err, certificate.ErrInvalidCertificate) {
		t.Errorf("expected ErrInvalidCertificate, got %v", err)
	}
}

func TestCertificate_UntrustedIssuerFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	otherPublic, _, _ := ed25519.GenerateKey(rand.Reader)
	otherPub, _ := keys.FromCryptoKey(otherPublic)

	validator := certificate.NewValidator[testPayload](otherPub)
	_, err := validator.DeserializeAndValidate(f.wire)
	if !errors.Is(err, certificate.ErrInvalidCertificate) {
		t.Errorf("expected ErrInvalidCertificate, got %v", err)
	}
}

func TestCertificate_TruncatedBytesAreMalformed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	validator := certificate.NewValidator[testPayload](f.issuerPub)

	for _, length := range []int{0, 1, 3, len(f.wire) / 2, len(f.wire) - 1} {
		_, err := validator.DeserializeAndValidate(f.wire[:length])
		if !errors.Is(err, certificate.ErrMalformedCertificate) {
			t.Errorf("truncation to %d bytes: expected ErrMalformedCertificate, got %v", length, err)
		}
	}
}

func TestCertificate_TrailingGarbageIsMalformed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	validator := certificate.NewValidator[testPayload](f.issuerPub)

	extended := append(append([]byte{}, f.wire...), 0x00)
	_, err := validator.DeserializeAndValidate(extended)
	if !errors.Is(err, certificate.ErrMalformedCertificate) {
		t.Errorf("expected ErrMalformedCertificate, got %v", err)
	}
}

func TestRoleSet_SeparatorCharactersSurviveWire(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cert := certificate.Create(
		f.issuerPub,
		f.clientPub,
		"test-client",
		certificate.NewRoleSet("reports,export", "user"),
		testPayload{Name: "alice"},
		f.expiresAt,
	)
	wire, err := certificate.Sign(cert, f.issuerKey)
	if err != nil {
		t.Fatalf("failed to sign certificate: %v", err)
	}

	validator := certificate.NewValidator[testPayload](f.issuerPub)
	decoded, err := validator.DeserializeAndValidate(wire)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	if !decoded.Roles().Has("reports,export") {
		t.Errorf("role with comma did not survive: %v", decoded.Roles())
	}
	if decoded.Roles().Has("reports") || decoded.Roles().Has("export") {
		t.Errorf("role with comma split into fragments: %v", decoded.Roles())
	}
}

func TestRoleSet_Normalization(t *testing.T) {
	t.Parallel()

	set := certificate.NewRoleSet("user", "admin", "user")
	if !set.Equal(certificate.NewRoleSet("admin", "user")) {
		t.Errorf("role set not normalized: %v", set)
	}
	if !set.Has("admin") || set.Has("root") {
		t.Error("role membership check failed")
	}
}
