// Package client is the counterpart of the authority for client
// applications: it sends credentials, validates returned certificates against
// the trusted issuer keys, signs outgoing requests with the client's own key,
// and keeps the current certificate across refreshes.
package client

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"git.sr.ht/~jakintosh/attest/pkg/api"
	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/certificate"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
	"git.sr.ht/~jakintosh/attest/pkg/request"
)

// Client talks to one authority on behalf of one key pair. P is the
// certificate payload type agreed with the authority.
type Client[P any] struct {
	baseURL   string
	http      *http.Client
	signer    *request.Signer
	publicKey keys.PublicKey
	validator *certificate.Validator[P]

	mu   sync.RWMutex
	cert *certificate.Certificate[P]
}

func New[P any](
	baseURL string,
	clientKey crypto.Signer,
	trustedKeys ...keys.PublicKey,
) (*Client[P], error) {
	publicKey, err := keys.FromCryptoKey(clientKey.Public())
	if err != nil {
		return nil, fmt.Errorf("unusable client key: %v", err)
	}
	return &Client[P]{
		baseURL:   baseURL,
		http:      &http.Client{},
		signer:    request.NewSigner(clientKey),
		publicKey: publicKey,
		validator: certificate.NewValidator[P](trustedKeys...),
	}, nil
}

// SetHTTPClient swaps the underlying http.Client, e.g. to set timeouts.
func (c *Client[P]) SetHTTPClient(httpClient *http.Client) {
	c.http = httpClient
}

// Certificate returns the current validated certificate, or nil before
// sign-up/sign-in.
func (c *Client[P]) Certificate() *certificate.Certificate[P] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert
}

// SignUp registers a new account and stores the returned certificate.
func (c *Client[P]) SignUp(identifier string, password string, clientID string) (*certificate.Certificate[P], error) {
	return c.obtainCertificate(api.SignUpPath, http.StatusCreated, identifier, password, clientID)
}

// SignIn authenticates an existing account and stores the returned
// certificate.
func (c *Client[P]) SignIn(identifier string, password string, clientID string) (*certificate.Certificate[P], error) {
	return c.obtainCertificate(api.SignInPath, http.StatusOK, identifier, password, clientID)
}

// Refresh exchanges the current certificate for a fresh one. The superseded
// certificate becomes permanently unusable on success.
func (c *Client[P]) Refresh() (*certificate.Certificate[P], error) {
	cert := c.Certificate()
	if cert == nil {
		return nil, fmt.Errorf("%w: no certificate to refresh", authority.ErrNoSessionFound)
	}

	response, err := c.postSigned(api.RefreshPath, cert)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, translateError(response)
	}
	return c.storeCertificateFrom(response)
}

// SignOut ends the session behind the current certificate. Sign-out is
// idempotent on the authority side; locally the certificate is dropped.
func (c *Client[P]) SignOut() error {
	cert := c.Certificate()
	if cert == nil {
		return nil
	}

	response, err := c.postSigned(api.SignOutPath, cert)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusNoContent {
		return translateError(response)
	}

	c.mu.Lock()
	c.cert = nil
	c.mu.Unlock()
	return nil
}

// SignRequest attaches the current certificate to an arbitrary outgoing
// request and signs it, for calls to services that validate this protocol.
func (c *Client[P]) SignRequest(r *http.Request, body []byte) error {
	cert := c.Certificate()
	if cert == nil {
		return fmt.Errorf("%w: no certificate to attach", authority.ErrNoSessionFound)
	}
	r.Header.Set(request.CertificateHeader, base64.StdEncoding.EncodeToString(cert.Wire()))
	return c.signer.SignRequest(r, body)
}

func (c *Client[P]) obtainCertificate(
	path string,
	expectedStatus int,
	identifier string,
	password string,
	clientID string,
) (
	*certificate.Certificate[P],
	error,
) {
	credentials := authority.Credentials{
		Identifier: identifier,
		Password:   password,
		ClientID:   clientID,
		PublicKey:  c.publicKey,
	}
	body, err := json.Marshal(&credentials)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode credentials: %v", err)
	}

	response, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request to authority failed: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		return nil, translateError(response)
	}
	return c.storeCertificateFrom(response)
}

func (c *Client[P]) postSigned(path string, cert *certificate.Certificate[P]) (*http.Response, error) {
	r, err := http.NewRequest(http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't build request: %v", err)
	}
	r.Header.Set(request.CertificateHeader, base64.StdEncoding.EncodeToString(cert.Wire()))
	if err := c.signer.SignRequest(r, nil); err != nil {
		return nil, err
	}

	response, err := c.http.Do(r)
	if err != nil {
		return nil, fmt.Errorf("request to authority failed: %v", err)
	}
	return response, nil
}

// storeCertificateFrom validates the certificate in a response body and
// records it. A certificate bound to a key other than this client's own is
// rejected, so a man in the middle can't substitute a certificate for a key
// it controls.
func (c *Client[P]) storeCertificateFrom(response *http.Response) (*certificate.Certificate[P], error) {
	var wrapped api.CertificateResponse
	if err := json.NewDecoder(response.Body).Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("%w: couldn't decode response: %v", certificate.ErrMalformedCertificate, err)
	}

	cert, err := c.validator.DeserializeAndValidate(wrapped.Certificate)
	if err != nil {
		return nil, err
	}
	if !cert.ClientKey().Equal(c.publicKey) {
		return nil, fmt.Errorf("%w: certificate key does not match my public key", certificate.ErrInvalidCertificate)
	}

	c.mu.Lock()
	c.cert = cert
	c.mu.Unlock()
	return cert, nil
}

// errorsByCode maps the authority's response codes back into the error
// taxonomy. Status codes alone can't do this: the authority answers 401 for
// several distinct errors.
var errorsByCode = map[string]error{
	api.CodeUserAlreadyExists:    authority.ErrUserAlreadyExists,
	api.CodeLoginFailed:          authority.ErrLoginFailed,
	api.CodeClientNotAuthorized:  authority.ErrClientNotAuthorized,
	api.CodeAlreadyLoggedIn:      authority.ErrAlreadyLoggedIn,
	api.CodeNoSessionFound:       authority.ErrNoSessionFound,
	api.CodeExpiredSession:       authority.ErrExpiredSession,
	api.CodeSignatureInvalid:     authority.ErrSignatureInvalid,
	api.CodeInvalidCertificate:   certificate.ErrInvalidCertificate,
	api.CodeMalformedCertificate: certificate.ErrMalformedCertificate,
	api.CodeMissingSignature:     request.ErrMissingSignatureHeader,
	api.CodeInternal:             authority.ErrInternal,
}

func translateError(response *http.Response) error {
	var body api.ErrorResponse
	if err := json.NewDecoder(response.Body).Decode(&body); err == nil {
		if translated, ok := errorsByCode[body.Code]; ok {
			return translated
		}
	}
	return fmt.Errorf("unexpected status code %d from authority", response.StatusCode)
}
