// Package testutil provides test environment setup and utilities for
// internal package tests.
package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/attest/internal/api"
	"git.sr.ht/~jakintosh/attest/internal/database"
	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// Payload is the certificate payload used across internal tests.
type Payload struct {
	Identifier string `json:"identifier"`
}

var (
	sharedIssuerKey     ed25519.PrivateKey
	sharedIssuerKeyOnce sync.Once
)

// getSharedIssuerKey returns a cached issuer signing key for tests.
func getSharedIssuerKey() ed25519.PrivateKey {
	sharedIssuerKeyOnce.Do(func() {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			panic("failed to generate shared issuer key: " + err.Error())
		}
		sharedIssuerKey = key
	})
	return sharedIssuerKey
}

// Clock is a controllable time source for expiry tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Config overrides parts of the default test environment.
type Config struct {
	ClientPolicy  authority.ClientAccessPolicy
	SessionPolicy authority.SessionCreationPolicy
	SessionTTL    time.Duration
}

// TestEnv provides all dependencies needed for testing.
type TestEnv struct {
	DB        *database.SQLiteStore
	Authority *authority.Authority[Payload]
	Router    http.Handler
	IssuerKey ed25519.PrivateKey
	IssuerPub keys.PublicKey
	Clock     *Clock
}

// SetupTestEnv creates an isolated environment with in-memory SQLite,
// allow-all policies, and a one-hour session TTL on a controllable clock.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return SetupTestEnvWithConfig(t, Config{})
}

func SetupTestEnvWithConfig(
	t *testing.T,
	cfg Config,
) *TestEnv {
	t.Helper()

	db := database.NewSQLiteStore(":memory:", database.PasswordModeTesting)
	t.Cleanup(func() {
		_ = db.Close()
	})

	issuerKey := getSharedIssuerKey()
	issuerPub, err := keys.FromCryptoKey(issuerKey.Public())
	if err != nil {
		t.Fatalf("failed to encode issuer key: %v", err)
	}

	clock := &Clock{now: time.Now()}

	clientPolicy := cfg.ClientPolicy
	if clientPolicy == nil {
		clientPolicy = authority.AllowAllClients
	}
	sessionPolicy := cfg.SessionPolicy
	if sessionPolicy == nil {
		sessionPolicy = authority.AllowAllSessions
	}
	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	auth, err := authority.New(
		db.UserStore(),
		db.SessionStore(),
		clientPolicy,
		sessionPolicy,
		authority.FixedTTLExpiry{TTL: ttl, Clock: clock.Now},
		func(user *authority.User) (Payload, error) {
			return Payload{Identifier: user.Identifier}, nil
		},
		issuerKey,
	)
	if err != nil {
		t.Fatalf("failed to create authority: %v", err)
	}

	return &TestEnv{
		DB:        db,
		Authority: auth,
		IssuerKey: issuerKey,
		IssuerPub: issuerPub,
		Clock:     clock,
	}
}

// SetupTestEnvWithRouter creates a TestEnv and configures the API router.
func SetupTestEnvWithRouter(t *testing.T) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	env.Router = api.New(env.Authority).Router()
	return env
}

// NewClientKeys generates a fresh client key pair for a test.
func NewClientKeys(t *testing.T) (ed25519.PrivateKey, keys.PublicKey) {
	t.Helper()
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate client key: %v", err)
	}
	pub, err := keys.FromCryptoKey(public)
	if err != nil {
		t.Fatalf("failed to encode client key: %v", err)
	}
	return private, pub
}

// Credentials builds a credentials value bound to the given client key.
func Credentials(
	identifier string,
	password string,
	clientID string,
	publicKey keys.PublicKey,
) authority.Credentials {
	return authority.Credentials{
		Identifier: identifier,
		Password:   password,
		ClientID:   clientID,
		PublicKey:  publicKey,
	}
}

// SignUpTestUser signs up a user with a fresh key pair and returns the
// certificate bytes and the client's private key.
func (env *TestEnv) SignUpTestUser(
	t *testing.T,
	identifier string,
	password string,
) ([]byte, ed25519.PrivateKey) {
	t.Helper()
	private, pub := NewClientKeys(t)
	cert, err := env.Authority.SignUp(Credentials(identifier, password, "test-client", pub))
	if err != nil {
		t.Fatalf("failed to sign up test user: %v", err)
	}
	return cert, private
}
