package api

import (
	"net/http"
)

func (a *API) SignOut() http.HandlerFunc {
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

		if err := a.authority.SignOut(cert, signedBytes, signature); err != nil {
			writeError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
