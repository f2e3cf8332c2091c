package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/attest/pkg/api"
)

func (a *API) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cert, ok := certificateFrom(w, r)
		if !ok {
			return
		}

		signature, err := a.validator.Signature(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		signedBytes := a.validator.SignedBytesFrom(r)

		newCert, err := a.authority.Refresh(cert, signedBytes, signature)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(&api.CertificateResponse{Certificate: newCert}, w)
	}
}
