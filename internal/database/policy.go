package database

import (
	"log"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

// ActiveSessionPolicy is a SessionCreationPolicy that permits at most one
// non-expired session per (user, client key) pair. It answers from the
// sessions table directly.
type ActiveSessionPolicy struct {
	store *SQLiteStore
}

func (s *SQLiteStore) ActiveSessionPolicy() *ActiveSessionPolicy {
	return &ActiveSessionPolicy{store: s}
}

var _ authority.SessionCreationPolicy = (*ActiveSessionPolicy)(nil)

func (p *ActiveSessionPolicy) MayCreateSession(
	userID uuid.UUID,
	publicKey keys.PublicKey,
) bool {
	row := p.store.db.QueryRow(`
		SELECT COUNT(*)
		FROM sessions
		WHERE user_id=?1 AND public_key=?2 AND expires_at>?3;`,
		userID.String(),
		publicKey.Bytes,
		time.Now().Unix(),
	)

	var active int
	if err := row.Scan(&active); err != nil {
		log.Printf("couldn't count active sessions: %v\n", err)
		return false
	}
	return active == 0
}
