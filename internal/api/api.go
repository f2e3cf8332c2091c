// Package api is the HTTP boundary of the authority: it decodes requests,
// invokes the core operations, and translates the error taxonomy into status
// codes.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/attest/pkg/api"
	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/certificate"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
	"git.sr.ht/~jakintosh/attest/pkg/request"
)

// Authority is the core surface the handlers drive. *authority.Authority[P]
// satisfies it for any payload type.
type Authority interface {
	SignUp(credentials authority.Credentials) ([]byte, error)
	SignIn(credentials authority.Credentials) ([]byte, error)
	Refresh(cert []byte, signedBytes []byte, signature keys.Signature) ([]byte, error)
	SignOut(cert []byte, signedBytes []byte, signature keys.Signature) error
}

type API struct {
	authority Authority
	validator request.Validator
}

func New(authority Authority) *API {
	return &API{authority: authority}
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logApiErr(r, "bad json request")
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

func returnJsonStatus(data any, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response body: %v\n", err)
	}
}

func logApiErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}

// certificateFrom decodes the base64 certificate header. The raw bytes are
// the session handle the core operates on.
func certificateFrom(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	header := r.Header.Get(request.CertificateHeader)
	if header == "" {
		logApiErr(r, "missing certificate header")
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	cert, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		logApiErr(r, "certificate header is not base64")
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	return cert, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusAndCode(err)
	logApiErr(r, err.Error())
	returnJsonStatus(&api.ErrorResponse{Code: code}, status, w)
}

// statusAndCode translates the error taxonomy into a status code plus the
// machine-readable code clients map back into sentinel errors. The status
// alone is ambiguous: most auth failures share a 401.
func statusAndCode(err error) (int, string) {
	switch {
	case errors.Is(err, authority.ErrUserAlreadyExists):
		return http.StatusConflict, api.CodeUserAlreadyExists
	case errors.Is(err, authority.ErrLoginFailed):
		return http.StatusUnauthorized, api.CodeLoginFailed
	case errors.Is(err, authority.ErrClientNotAuthorized):
		return http.StatusUnauthorized, api.CodeClientNotAuthorized
	case errors.Is(err, authority.ErrExpiredSession):
		return http.StatusUnauthorized, api.CodeExpiredSession
	case errors.Is(err, authority.ErrSignatureInvalid),
		errors.Is(err, request.ErrSignatureInvalid):
		return http.StatusUnauthorized, api.CodeSignatureInvalid
	case errors.Is(err, certificate.ErrInvalidCertificate):
		return http.StatusUnauthorized, api.CodeInvalidCertificate
	case errors.Is(err, authority.ErrAlreadyLoggedIn):
		return http.StatusPreconditionFailed, api.CodeAlreadyLoggedIn
	case errors.Is(err, authority.ErrNoSessionFound):
		return http.StatusNotFound, api.CodeNoSessionFound
	case errors.Is(err, request.ErrMissingSignatureHeader):
		return http.StatusBadRequest, api.CodeMissingSignature
	case errors.Is(err, certificate.ErrMalformedCertificate):
		return http.StatusBadRequest, api.CodeMalformedCertificate
	}
	return http.StatusInternalServerError, api.CodeInternal
}
