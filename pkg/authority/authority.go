// Package authority implements the issuing side of the certificate protocol:
// sign-up, sign-in, refresh, and sign-out against pluggable user and session
// stores, gated by client access and session creation policies. Every
// operation is a pure function of its inputs plus store state; the only
// shared mutable resource is the session store.
package authority

import (
	"crypto"
	"errors"
	"fmt"
	"log"
	"time"

	"git.sr.ht/~jakintosh/attest/pkg/certificate"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrLoginFailed         = errors.New("login failed")
	ErrClientNotAuthorized = errors.New("client not authorized")
	ErrAlreadyLoggedIn     = errors.New("already logged in")
	ErrNoSessionFound      = errors.New("no session found")
	ErrExpiredSession      = errors.New("expired session")
	ErrSignatureInvalid    = errors.New("signature validation failed")
	ErrInternal            = errors.New("internal error")
)

// Authority issues and renews certificates. P is the signable payload type
// embedded in every certificate.
type Authority[P any] struct {
	users         UserStore
	sessions      SessionStore
	clientPolicy  ClientAccessPolicy
	sessionPolicy SessionCreationPolicy
	expiry        ExpiryCalculator
	payload       PayloadFunc[P]
	issuerKey     crypto.Signer
	issuerPub     keys.PublicKey
}

func New[P any](
	users UserStore,
	sessions SessionStore,
	clientPolicy ClientAccessPolicy,
	sessionPolicy SessionCreationPolicy,
	expiry ExpiryCalculator,
	payload PayloadFunc[P],
	issuerKey crypto.Signer,
) (*Authority[P], error) {
	issuerPub, err := keys.FromCryptoKey(issuerKey.Public())
	if err != nil {
		return nil, fmt.Errorf("unusable issuer key: %v", err)
	}
	return &Authority[P]{
		users:         users,
		sessions:      sessions,
		clientPolicy:  clientPolicy,
		sessionPolicy: sessionPolicy,
		expiry:        expiry,
		payload:       payload,
		issuerKey:     issuerKey,
		issuerPub:     issuerPub,
	}, nil
}

// IssuerPublicKey returns the key clients must trust to validate
// certificates issued here.
func (a *Authority[P]) IssuerPublicKey() keys.PublicKey {
	return a.issuerPub
}

// SignUp creates a new user and a session for it, and returns the signed
// certificate bytes. User creation is not rolled back when certificate
// creation fails afterwards; the partial state requires reconciliation.
func (a *Authority[P]) SignUp(credentials Credentials) ([]byte, error) {
	if err := a.checkClientID(credentials.ClientID); err != nil {
		return nil, err
	}

	if _, err := a.users.FindByIdentifier(credentials.Identifier); err == nil {
		return nil, fmt.Errorf("%w: identifier %q", ErrUserAlreadyExists, credentials.Identifier)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: failed to look up user: %v", ErrInternal, err)
	}

	user, err := a.users.CreateFromCredentials(credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create user: %v", ErrInternal, err)
	}

	return a.createCertificateAndSession(credentials, user)
}

// SignIn creates a new session for a known user and returns the signed
// certificate bytes. An unknown identifier and a wrong password produce the
// same error, so callers can't enumerate accounts.
func (a *Authority[P]) SignIn(credentials Credentials) ([]byte, error) {
	if err := a.checkClientID(credentials.ClientID); err != nil {
		return nil, err
	}

	user, err := a.users.FindByIdentifier(credentials.Identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrLoginFailed
		}
		return nil, fmt.Errorf("%w: failed to look up user: %v", ErrInternal, err)
	}
	if !user.PasswordMatches(credentials.Password) {
		return nil, ErrLoginFailed
	}

	if !a.sessionPolicy.MayCreateSession(user.ID, credentials.PublicKey) {
		return nil, fmt.Errorf("%w: user %s with client key %s", ErrAlreadyLoggedIn, user.ID, credentials.PublicKey.Fingerprint())
	}

	return a.createCertificateAndSession(credentials, user)
}

// Refresh exchanges the most recently issued certificate of a session for a
// fresh one. The request signature is verified against the public key
// recorded on the session, never against the presented certificate.
func (a *Authority[P]) Refresh(cert []byte, signedBytes []byte, signature keys.Signature) ([]byte, error) {
	session, err := a.findSession(cert)
	if err != nil {
		return nil, err
	}
	if a.expiry.IsExpired(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired at %s", ErrExpiredSession, session.ExpiresAt.UTC())
	}
	if err := verifySignature(signedBytes, signature, session); err != nil {
		return nil, err
	}
	if err := a.checkClientID(session.ClientID); err != nil {
		return nil, err
	}

	user, err := a.users.FindByID(session.UserID)
	if err != nil {
		// a session pointing at a missing user means the stores disagree;
		// this must abort, not degrade
		return nil, fmt.Errorf("%w: session references missing user %s: %v", ErrInternal, session.UserID, err)
	}

	newCert, expiresAt, err := a.createCertificate(user, session.PublicKey, session.ClientID)
	if err != nil {
		return nil, err
	}

	replaced, err := a.sessions.UpdateByCertificate(cert, newCert, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update session: %v", ErrInternal, err)
	}
	if !replaced {
		// a concurrent refresh already rotated this session's certificate
		return nil, fmt.Errorf("%w: certificate superseded", ErrNoSessionFound)
	}
	return newCert, nil
}

// SignOut deletes the session addressed by the certificate bytes. An unknown
// certificate is a logged no-op, making sign-out idempotent; an expired
// certificate may still sign itself out.
func (a *Authority[P]) SignOut(cert []byte, signedBytes []byte, signature keys.Signature) error {
	session, err := a.findSession(cert)
	if err != nil {
		if errors.Is(err, ErrNoSessionFound) {
			log.Println("sign-out for certificate without session, ignoring")
			return nil
		}
		return err
	}
	if err := verifySignature(signedBytes, signature, session); err != nil {
		return err
	}

	if err := a.sessions.Delete(session.Certificate); err != nil {
		return fmt.Errorf("%w: failed to delete session: %v", ErrInternal, err)
	}
	return nil
}

func (a *Authority[P]) checkClientID(clientID string) error {
	if !a.clientPolicy.IsAllowed(clientID) {
		return fmt.Errorf("%w: client id %q", ErrClientNotAuthorized, clientID)
	}
	return nil
}

func (a *Authority[P]) findSession(cert []byte) (*Session, error) {
	session, err := a.sessions.FindByCertificate(cert)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSessionFound
		}
		return nil, fmt.Errorf("%w: failed to look up session: %v", ErrInternal, err)
	}
	return session, nil
}

func verifySignature(signedBytes []byte, signature keys.Signature, session *Session) error {
	if !signature.IsValidFor(signedBytes, session.PublicKey) {
		return fmt.Errorf("%w: request not signed by session key %s", ErrSignatureInvalid, session.PublicKey.Fingerprint())
	}
	return nil
}

func (a *Authority[P]) createCertificateAndSession(credentials Credentials, user *User) ([]byte, error) {
	cert, expiresAt, err := a.createCertificate(user, credentials.PublicKey, credentials.ClientID)
	if err != nil {
		return nil, err
	}

	session := &Session{
		UserID:      user.ID,
		ClientID:    credentials.ClientID,
		PublicKey:   credentials.PublicKey,
		Certificate: cert,
		ExpiresAt:   expiresAt,
	}
	if err := a.sessions.Insert(session); err != nil {
		return nil, fmt.Errorf("%w: failed to store session: %v", ErrInternal, err)
	}
	return cert, nil
}

// createCertificate issues a signed certificate and returns it with the
// expiry baked into it, so the session record and the signed content always
// agree.
func (a *Authority[P]) createCertificate(
	user *User,
	clientKey keys.PublicKey,
	clientID string,
) (
	[]byte,
	time.Time,
	error,
) {
	payload, err := a.payload(user)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: couldn't derive payload for user %s: %v", certificate.ErrCertificateCreation, user.ID, err)
	}

	expiresAt := a.expiry.CalculateFor(user)
	cert := certificate.Create(a.issuerPub, clientKey, clientID, user.Roles, payload, expiresAt)
	wire, err := certificate.Sign(cert, a.issuerKey)
	if err != nil {
		return nil, time.Time{}, err
	}
	return wire, expiresAt, nil
}
