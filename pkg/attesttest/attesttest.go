// Package attesttest provides an in-process authority harness for testing
// code that talks to an authority: an httptest server over real handlers,
// backed by in-memory stores, with generated issuer and user credentials.
package attesttest

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/attest/internal/api"
	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Payload is the certificate payload the harness issues by default.
type Payload struct {
	Identifier string `json:"identifier"`
}

// IdentifierPayload derives a Payload carrying the user's identifier.
func IdentifierPayload(user *authority.User) (Payload, error) {
	return Payload{Identifier: user.Identifier}, nil
}

// User holds credentials pre-registered with the harness.
type User struct {
	Identifier string
	Password   string
}

// Config adjusts harness behavior. The zero value works.
type Config[P any] struct {
	// Payload derives certificate payloads; required for P other than
	// attesttest.Payload.
	Payload authority.PayloadFunc[P]

	// SessionTTL defaults to one hour.
	SessionTTL time.Duration

	// Users are created before the server starts.
	Users []User

	ClientPolicy  authority.ClientAccessPolicy
	SessionPolicy authority.SessionCreationPolicy
}

// Harness is a running test authority. All fields are read-only after Start.
type Harness[P any] struct {
	// BaseURL is the address of the running HTTP server.
	BaseURL string

	Authority *authority.Authority[P]
	IssuerKey ed25519.PrivateKey
	IssuerPub keys.PublicKey

	server *httptest.Server
}

// Start brings up an authority with the default Payload type.
func Start(t *testing.T, cfg Config[Payload]) *Harness[Payload] {
	t.Helper()
	if cfg.Payload == nil {
		cfg.Payload = IdentifierPayload
	}
	return StartWithPayload(t, cfg)
}

// StartWithPayload brings up an authority issuing a caller-defined payload
// type. The server shuts down with the test.
func StartWithPayload[P any](t *testing.T, cfg Config[P]) *Harness[P] {
	t.Helper()

	if cfg.Payload == nil {
		t.Fatal("Config.Payload is required")
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.ClientPolicy == nil {
		cfg.ClientPolicy = authority.AllowAllClients
	}
	if cfg.SessionPolicy == nil {
		cfg.SessionPolicy = authority.AllowAllSessions
	}

	_, issuerKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate issuer key: %v", err)
	}

	store := newMemoryStore()
	auth, err := authority.New(
		store,
		store,
		cfg.ClientPolicy,
		cfg.SessionPolicy,
		authority.NewFixedTTLExpiry(cfg.SessionTTL),
		cfg.Payload,
		issuerKey,
	)
	if err != nil {
		t.Fatalf("failed to create authority: %v", err)
	}

	for _, user := range cfg.Users {
		if _, err := store.CreateFromCredentials(authority.Credentials{
			Identifier: user.Identifier,
			Password:   user.Password,
		}); err != nil {
			t.Fatalf("failed to create user %q: %v", user.Identifier, err)
		}
	}

	server := httptest.NewServer(api.New(auth).Router())
	t.Cleanup(server.Close)

	return &Harness[P]{
		BaseURL:   server.URL,
		Authority: auth,
		IssuerKey: issuerKey,
		IssuerPub: auth.IssuerPublicKey(),
		server:    server,
	}
}
