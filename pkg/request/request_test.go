package request_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/attest/pkg/keys"
	"git.sr.ht/~jakintosh/attest/pkg/request"
)

func TestSignedBytes_IndependentOfHeaderArrivalOrder(t *testing.T) {
	t.Parallel()

	first := httptest.NewRequest("POST", "/auth/refresh", nil)
	first.Header.Set(request.CertificateHeader, "cert-bytes")
	first.Header.Set(request.ContentDigestHeader, "digest-bytes")

	second := httptest.NewRequest("POST", "/auth/refresh", nil)
	second.Header.Set(request.ContentDigestHeader, "digest-bytes")
	second.Header.Set(request.CertificateHeader, "cert-bytes")

	a := request.SignedBytes(first.Method, first.URL.Path, first.Header)
	b := request.SignedBytes(second.Method, second.URL.Path, second.Header)
	if !bytes.Equal(a, b) {
		t.Error("canonical bytes differ for identical header values")
	}
}

func TestSignedBytes_ChangesWithHeaderValue(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/auth/refresh", nil)
	r.Header.Set(request.CertificateHeader, "cert-bytes")

	before := request.SignedBytes(r.Method, r.URL.Path, r.Header)
	r.Header.Set(request.CertificateHeader, "cert-bytes-2")
	after := request.SignedBytes(r.Method, r.URL.Path, r.Header)
	if bytes.Equal(before, after) {
		t.Error("canonical bytes unchanged after header value change")
	}
}

func TestSignedBytes_IgnoresUnrecognizedHeaders(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/profile", nil)
	r.Header.Set(request.CertificateHeader, "cert-bytes")

	before := request.SignedBytes(r.Method, r.URL.Path, r.Header)
	r.Header.Set("X-Request-Id", "abc-123")
	r.Header.Set("User-Agent", "test")
	after := request.SignedBytes(r.Method, r.URL.Path, r.Header)
	if !bytes.Equal(before, after) {
		t.Error("unrecognized headers leaked into canonical bytes")
	}
}

func TestSignAndValidate(t *testing.T) {
	t.Parallel()
	public, private, _ := ed25519.GenerateKey(rand.Reader)
	pub, _ := keys.FromCryptoKey(public)

	body := []byte(`{"some":"payload"}`)
	r := httptest.NewRequest("POST", "/auth/signout", bytes.NewReader(body))
	r.Header.Set(request.CertificateHeader, "cert-bytes")

	signer := request.NewSigner(private)
	if err := signer.SignRequest(r, body); err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	if err := (request.Validator{}).Validate(r, body, pub); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidate_WrongKey(t *testing.T) {
	t.Parallel()
	_, private, _ := ed25519.GenerateKey(rand.Reader)
	otherPublic, _, _ := ed25519.GenerateKey(rand.Reader)
	otherPub, _ := keys.FromCryptoKey(otherPublic)

	r := httptest.NewRequest("POST", "/auth/refresh", nil)
	r.Header.Set(request.CertificateHeader, "cert-bytes")
	if err := request.NewSigner(private).SignRequest(r, nil); err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	err := (request.Validator{}).Validate(r, nil, otherPub)
	if !errors.Is(err, request.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestValidate_TamperedBody(t *testing.T) {
	t.Parallel()
	public, private, _ := ed25519.GenerateKey(rand.Reader)
	pub, _ := keys.FromCryptoKey(public)

	body := []byte(`{"some":"payload"}`)
	r := httptest.NewRequest("POST", "/auth/signout", bytes.NewReader(body))
	if err := request.NewSigner(private).SignRequest(r, body); err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	tampered := []byte(`{"some":"other payload"}`)
	err := (request.Validator{}).Validate(r, tampered, pub)
	if !errors.Is(err, request.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid for tampered body, got %v", err)
	}
}

func TestValidate_TamperedHeader(t *testing.T) {
	t.Parallel()
	public, private, _ := ed25519.GenerateKey(rand.Reader)
	pub, _ := keys.FromCryptoKey(public)

	r := httptest.NewRequest("POST", "/auth/refresh", nil)
	r.Header.Set(request.CertificateHeader, "cert-bytes")
	if err := request.NewSigner(private).SignRequest(r, nil); err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	r.Header.Set(request.CertificateHeader, "swapped-cert-bytes")
	err := (request.Validator{}).Validate(r, nil, pub)
	if !errors.Is(err, request.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid for tampered header, got %v", err)
	}
}

func TestValidate_MissingSignatureHeader(t *testing.T) {
	t.Parallel()
	public, _, _ := ed25519.GenerateKey(rand.Reader)
	pub, _ := keys.FromCryptoKey(public)

	r := httptest.NewRequest("POST", "/auth/refresh", strings.NewReader(""))
	err := (request.Validator{}).Validate(r, nil, pub)
	if !errors.Is(err, request.ErrMissingSignatureHeader) {
		t.Errorf("expected ErrMissingSignatureHeader, got %v", err)
	}
}
