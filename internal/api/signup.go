package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/attest/pkg/api"
	"git.sr.ht/~jakintosh/attest/pkg/authority"
)

func (a *API) SignUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials authority.Credentials
		if ok := decodeRequest(&credentials, w, r); !ok {
			return
		}

		cert, err := a.authority.SignUp(credentials)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJsonStatus(&api.CertificateResponse{Certificate: cert}, http.StatusCreated, w)
	}
}
