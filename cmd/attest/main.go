package main

import (
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/attest/internal/api"
	"git.sr.ht/~jakintosh/attest/internal/config"
	"git.sr.ht/~jakintosh/attest/internal/database"
	"git.sr.ht/~jakintosh/attest/internal/whitelist"
	"git.sr.ht/~jakintosh/attest/pkg/authority"
)

// Payload is what certificates issued by this server carry: enough for a
// service to greet the user without calling back.
type Payload struct {
	Identifier string `json:"identifier"`
}

func payloadFor(user *authority.User) (Payload, error) {
	return Payload{Identifier: user.Identifier}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v\n", err)
	}

	issuerKey, err := loadOrCreateIssuerKey(cfg.IssuerKeyPath)
	if err != nil {
		log.Fatalf("failed to prepare issuer key: %v\n", err)
	}

	store := database.NewSQLiteStore(cfg.DBPath, database.PasswordModeProduction)
	defer store.Close()

	auth, err := authority.New(
		store.UserStore(),
		store.SessionStore(),
		clientPolicy(cfg),
		sessionPolicy(cfg, store),
		authority.NewFixedTTLExpiry(cfg.SessionTTL),
		payloadFor,
		issuerKey,
	)
	if err != nil {
		log.Fatalf("failed to create authority: %v\n", err)
	}

	r := api.New(auth).Router()

	log.Printf("listening on %s\n", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}

func clientPolicy(cfg *config.Config) authority.ClientAccessPolicy {
	if cfg.ClientWhitelistPath == "" {
		return authority.AllowAllClients
	}
	wl, err := whitelist.Watch(cfg.ClientWhitelistPath)
	if err != nil {
		log.Fatalf("failed to load client whitelist: %v\n", err)
	}
	return wl
}

func sessionPolicy(cfg *config.Config, store *database.SQLiteStore) authority.SessionCreationPolicy {
	if cfg.SingleActiveSession {
		return store.ActiveSessionPolicy()
	}
	return authority.AllowAllSessions
}
