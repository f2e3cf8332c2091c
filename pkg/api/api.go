// Package api defines the wire types and routes shared by the authority's
// HTTP boundary and the client.
package api

// Authority routes. All take POST.
const (
	SignUpPath  = "/auth/signup"
	SignInPath  = "/auth/signin"
	RefreshPath = "/auth/refresh"
	SignOutPath = "/auth/signout"
)

// Error codes carried in ErrorResponse bodies. Several errors share a status
// code (everything auth-related is a 401), so clients map on the code instead.
const (
	CodeUserAlreadyExists    = "user_already_exists"
	CodeLoginFailed          = "login_failed"
	CodeClientNotAuthorized  = "client_not_authorized"
	CodeAlreadyLoggedIn      = "already_logged_in"
	CodeNoSessionFound       = "no_session_found"
	CodeExpiredSession       = "expired_session"
	CodeSignatureInvalid     = "signature_invalid"
	CodeInvalidCertificate   = "invalid_certificate"
	CodeMalformedCertificate = "malformed_certificate"
	CodeMissingSignature     = "missing_signature"
	CodeInternal             = "internal_error"
)

// ErrorResponse is the body the authority sends with every error status.
type ErrorResponse struct {
	Code string `json:"code"`
}

// CertificateResponse wraps signed certificate bytes for JSON transport.
// encoding/json base64-encodes the byte slice, which is the certificate's
// transport encoding everywhere.
type CertificateResponse struct {
	Certificate []byte `json:"certificate"`
}
