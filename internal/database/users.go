package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/certificate"
)

func (s *SQLiteStore) FindByIdentifier(
	identifier string,
) (
	*authority.User,
	error,
) {
	row := s.db.QueryRow(`
		SELECT id, identifier, secret, roles
		FROM users u
		WHERE u.identifier=?1;`,
		identifier,
	)
	return scanUser(row)
}

func (s *SQLiteStore) FindByID(
	id uuid.UUID,
) (
	*authority.User,
	error,
) {
	row := s.db.QueryRow(`
		SELECT id, identifier, secret, roles
		FROM users u
		WHERE u.id=?1;`,
		id.String(),
	)
	return scanUser(row)
}

func (s *SQLiteStore) CreateFromCredentials(
	credentials authority.Credentials,
) (
	*authority.User,
	error,
) {
	secret, err := bcrypt.GenerateFromPassword(
		[]byte(credentials.Password),
		s.passwordMode.Cost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &authority.User{
		ID:         uuid.New(),
		Identifier: credentials.Identifier,
		Secret:     secret,
		Roles:      s.DefaultRoles,
	}

	_, err = s.db.Exec(`
		INSERT INTO users (id, identifier, secret, roles)
		VALUES (?1, ?2, ?3, ?4);`,
		user.ID.String(),
		user.Identifier,
		user.Secret,
		encodeRoles(user.Roles),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into users: %v", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*authority.User, error) {
	var (
		id         string
		identifier string
		secret     []byte
		roles      string
	)
	if err := row.Scan(&id, &identifier, &secret, &roles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authority.ErrNotFound
		}
		return nil, fmt.Errorf("couldn't scan user: %v", err)
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse user id %q: %v", id, err)
	}

	roleSet, err := decodeRoles(roles)
	if err != nil {
		return nil, fmt.Errorf("couldn't decode roles for user %q: %v", id, err)
	}

	return &authority.User{
		ID:         userID,
		Identifier: identifier,
		Secret:     secret,
		Roles:      roleSet,
	}, nil
}

// Roles are stored as a JSON array so role names may contain any character.
func encodeRoles(roles certificate.RoleSet) string {
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	encoded, _ := json.Marshal(parts)
	return string(encoded)
}

func decodeRoles(encoded string) (certificate.RoleSet, error) {
	if encoded == "" {
		return certificate.RoleSet{}, nil
	}
	var parts []string
	if err := json.Unmarshal([]byte(encoded), &parts); err != nil {
		return nil, err
	}
	roles := make([]certificate.Role, len(parts))
	for i, part := range parts {
		roles[i] = certificate.Role(part)
	}
	return certificate.NewRoleSet(roles...), nil
}
