package attesttest

import (
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/certificate"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

func TestStart_ServesPreRegisteredUsers(t *testing.T) {
	t.Parallel()
	harness := Start(t, Config[Payload]{
		Users: []User{{Identifier: "alice", Password: "password123"}},
	})

	if harness.BaseURL == "" {
		t.Fatal("harness has no base URL")
	}

	pub, err := keys.FromCryptoKey(harness.IssuerKey.Public())
	if err != nil {
		t.Fatalf("failed to wrap issuer key: %v", err)
	}
	if !harness.IssuerPub.Equal(pub) {
		t.Error("IssuerPub does not match IssuerKey")
	}

	wire, err := harness.Authority.SignIn(authority.Credentials{
		Identifier: "alice",
		Password:   "password123",
		ClientID:   "test-client",
		PublicKey:  pub,
	})
	if err != nil {
		t.Fatalf("pre-registered user can't sign in: %v", err)
	}

	validator := certificate.NewValidator[Payload](harness.IssuerPub)
	cert, err := validator.DeserializeAndValidate(wire)
	if err != nil {
		t.Fatalf("issued certificate does not validate: %v", err)
	}
	if cert.Payload().Identifier != "alice" {
		t.Errorf("payload identifier = %q, want %q", cert.Payload().Identifier, "alice")
	}
}

func TestMemoryStore_UpdateByCertificate(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()

	user, err := store.CreateFromCredentials(authority.Credentials{
		Identifier: "alice",
		Password:   "password123",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	session := &authority.Session{
		UserID:      user.ID,
		ClientID:    "test-client",
		Certificate: []byte("old-cert"),
	}
	if err := store.Insert(session); err != nil {
		t.Fatalf("failed to insert session: %v", err)
	}

	replaced, err := store.UpdateByCertificate([]byte("old-cert"), []byte("new-cert"), session.ExpiresAt)
	if err != nil || !replaced {
		t.Fatalf("expected replacement, got replaced=%v err=%v", replaced, err)
	}

	if _, err := store.FindByCertificate([]byte("old-cert")); !errors.Is(err, authority.ErrNotFound) {
		t.Errorf("old certificate should be gone, got %v", err)
	}
	if _, err := store.FindByCertificate([]byte("new-cert")); err != nil {
		t.Errorf("new certificate should address the session: %v", err)
	}

	replaced, err = store.UpdateByCertificate([]byte("old-cert"), []byte("newer-cert"), session.ExpiresAt)
	if err != nil {
		t.Fatalf("UpdateByCertificate failed: %v", err)
	}
	if replaced {
		t.Error("stale certificate bytes should not replace anything")
	}
}
