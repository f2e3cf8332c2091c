package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"git.sr.ht/~jakintosh/attest/pkg/api"
)

func (a *API) Router() http.Handler {
	r := mux.NewRouter()

	s := r.Methods("POST").Subrouter()
	s.HandleFunc(api.SignUpPath, a.SignUp())
	s.HandleFunc(api.SignInPath, a.SignIn())
	s.HandleFunc(api.RefreshPath, a.Refresh())
	s.HandleFunc(api.SignOutPath, a.SignOut())

	return r
}
