package attesttest

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/certificate"
)

// memoryStore keeps users and sessions in maps. Sessions are keyed by their
// certificate bytes, matching the addressing the authority relies on.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]*authority.User
	sessions map[string]*authority.Session
}

var (
	_ authority.UserStore    = (*memoryStore)(nil)
	_ authority.SessionStore = (*memoryStore)(nil)
)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[string]*authority.User),
		sessions: make(map[string]*authority.Session),
	}
}

func (s *memoryStore) FindByIdentifier(identifier string) (*authority.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[identifier]
	if !ok {
		return nil, authority.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memoryStore) FindByID(id uuid.UUID) (*authority.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, authority.ErrNotFound
}

func (s *memoryStore) CreateFromCredentials(credentials authority.Credentials) (*authority.User, error) {
	secret, err := bcrypt.GenerateFromPassword([]byte(credentials.Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[credentials.Identifier]; ok {
		return nil, fmt.Errorf("identifier %q already taken", credentials.Identifier)
	}

	user := &authority.User{
		ID:         uuid.New(),
		Identifier: credentials.Identifier,
		Secret:     secret,
		Roles:      certificate.NewRoleSet("user"),
	}
	s.users[credentials.Identifier] = user

	copied := *user
	return &copied, nil
}

func (s *memoryStore) FindByCertificate(cert []byte) (*authority.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[string(cert)]
	if !ok {
		return nil, authority.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *memoryStore) Insert(session *authority.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[string(session.Certificate)] = &copied
	return nil
}

func (s *memoryStore) UpdateByCertificate(
	oldCert []byte,
	newCert []byte,
	expiresAt time.Time,
) (
	bool,
	error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[string(oldCert)]
	if !ok {
		return false, nil
	}
	delete(s.sessions, string(oldCert))

	session.Certificate = newCert
	session.ExpiresAt = expiresAt
	s.sessions[string(newCert)] = session
	return true, nil
}

func (s *memoryStore) Delete(cert []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, string(cert))
	return nil
}
