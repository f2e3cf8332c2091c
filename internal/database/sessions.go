package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/keys"
)

func (s *SQLiteStore) FindByCertificate(
	cert []byte,
) (
	*authority.Session,
	error,
) {
	row := s.db.QueryRow(`
		SELECT user_id, client_id, mechanism, public_key, certificate, expires_at
		FROM sessions
		WHERE certificate=?1;`,
		cert,
	)

	var (
		userID     string
		clientID   string
		mechanism  string
		publicKey  []byte
		stored     []byte
		expiresAt  int64
	)
	err := row.Scan(&userID, &clientID, &mechanism, &publicKey, &stored, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authority.ErrNotFound
		}
		return nil, fmt.Errorf("couldn't scan session: %v", err)
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse session user id %q: %v", userID, err)
	}

	return &authority.Session{
		UserID:   id,
		ClientID: clientID,
		PublicKey: keys.PublicKey{
			Mechanism: keys.Mechanism(mechanism),
			Bytes:     publicKey,
		},
		Certificate: stored,
		ExpiresAt:   time.Unix(expiresAt, 0),
	}, nil
}

func (s *SQLiteStore) Insert(
	session *authority.Session,
) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (user_id, client_id, mechanism, public_key, certificate, expires_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6);`,
		session.UserID.String(),
		session.ClientID,
		string(session.PublicKey.Mechanism),
		session.PublicKey.Bytes,
		session.Certificate,
		session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into sessions: %v", err)
	}
	return nil
}

// UpdateByCertificate replaces the certificate and expiry of the session whose
// stored certificate equals oldCert. The single UPDATE statement makes the
// replace-by-prior-identity atomic: of two concurrent refreshes, only the
// first finds a matching row.
func (s *SQLiteStore) UpdateByCertificate(
	oldCert []byte,
	newCert []byte,
	expiresAt time.Time,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		UPDATE sessions
		SET certificate=?1, expires_at=?2
		WHERE certificate=?3;`,
		newCert,
		expiresAt.Unix(),
		oldCert,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't update session: %v", err)
	}
	return rowsReplaced(result)
}

func (s *SQLiteStore) Delete(
	cert []byte,
) error {
	_, err := s.db.Exec(`
		DELETE FROM sessions
		WHERE certificate=?1;`,
		cert,
	)
	if err != nil {
		return fmt.Errorf("couldn't delete from sessions: %v", err)
	}
	return nil
}

// rowsReplaced reports whether the update matched a row. A RowsAffected
// failure must surface as an error: claiming success would let a lost refresh
// race go unnoticed.
func rowsReplaced(result sql.Result) (bool, error) {
	count, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("couldn't read rows affected: %w", err)
	}
	return count > 0, nil
}
