package store

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"launchdeck/internal/models"
)

// PasswordPolicy is the minimum-strength gate for new passwords.
// MinClasses counts distinct character classes (lower, upper, digit,
// other) the password must span.
type PasswordPolicy struct {
	MinLength  int
	MinClasses int
}

// Check returns ErrWeakPassword when the candidate fails the policy.
func (p PasswordPolicy) Check(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, p.MinLength)
	}

	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	classes := 0
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			classes++
		}
	}
	if classes < p.MinClasses {
		return fmt.Errorf("%w: at least %d character classes required", ErrWeakPassword, p.MinClasses)
	}
	return nil
}

// UserStore owns the credential document (users + roles). Same discipline
// as the ConfigStore: one mutex, atomic persist, no partial writes.
type UserStore struct {
	path   string
	cost   int
	policy PasswordPolicy

	mu  sync.RWMutex
	doc *models.CredentialDocument
}

// OpenUserStore loads users.yaml. When the file does not exist the store
// bootstraps a default admin account and an Admins role, and logs the
// generated password exactly once.
func OpenUserStore(path string, cost int, policy PasswordPolicy) (*UserStore, error) {
	s := &UserStore{path: path, cost: cost, policy: policy}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.bootstrap(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	doc, err := decodeCredentialDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.doc = doc
	return s, nil
}

func (s *UserStore) bootstrap() error {
	password, err := randomPassword()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}

	s.doc = &models.CredentialDocument{
		Users: []models.User{{
			Username: "admin",
			Password: string(hash),
			Roles:    []string{"Admins"},
			Version:  1,
		}},
		Roles: []models.Role{{
			Name:        "Admins",
			Description: "Full administrative access",
			IsAdmin:     true,
		}},
	}
	if err := s.persistLocked(); err != nil {
		return err
	}

	// Shown once; afterwards only the hash exists.
	slog.Warn("bootstrapped default admin account", "username", "admin", "password", password)
	return nil
}

// Authenticate verifies a username/password pair. Legacy plaintext-stored
// passwords are compared in constant time and rewritten as a bcrypt hash on
// first success; after that only the hashed path is taken. Unknown user and
// wrong password are indistinguishable to the caller.
func (s *UserStore) Authenticate(username, password string) (*models.User, error) {
	s.mu.RLock()
	user, idx := s.findUserLocked(username)
	s.mu.RUnlock()

	if idx < 0 {
		// Burn comparable time so a missing user is not observable.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if isBcryptHash(user.Password) {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return &user, nil
	}

	// Legacy plaintext record.
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if err := s.migratePassword(username, password); err != nil {
		return nil, err
	}

	s.mu.RLock()
	migrated, _ := s.findUserLocked(username)
	s.mu.RUnlock()
	return &migrated, nil
}

func (s *UserStore) migratePassword(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, idx := s.findUserLocked(username)
	if idx < 0 || isBcryptHash(user.Password) {
		// Another caller migrated in the meantime.
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	s.doc.Users[idx].Password = string(hash)
	if err := s.persistLocked(); err != nil {
		return err
	}
	slog.Info("migrated legacy plaintext password", "username", username)
	return nil
}

// ChangePassword verifies the old password, applies the strength policy and
// bumps the credential version so every outstanding session dies.
func (s *UserStore) ChangePassword(username, oldPassword, newPassword string) error {
	if _, err := s.Authenticate(username, oldPassword); err != nil {
		return err
	}
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx := s.findUserLocked(username)
	if idx < 0 {
		return ErrInvalidCredentials
	}
	prev := s.doc.Users[idx]
	s.doc.Users[idx].Password = string(hash)
	s.doc.Users[idx].Version++
	if err := s.persistLocked(); err != nil {
		s.doc.Users[idx] = prev
		return err
	}
	return nil
}

// GetUser returns a copy of the user record.
func (s *UserStore) GetUser(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, idx := s.findUserLocked(username)
	return user, idx >= 0
}

// CredentialVersion implements auth.VersionSource.
func (s *UserStore) CredentialVersion(username string) (int64, bool) {
	user, ok := s.GetUser(username)
	return user.Version, ok
}

// ListUsers returns copies of all user records.
func (s *UserStore) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone().Users
}

// UpsertUser creates or updates an account. The password field is always
// treated as plaintext and hashed here; an already-hashed value from the
// caller would just become a (very long) plaintext password, so hash
// injection is not possible. Role-set changes bump the credential version.
func (s *UserStore) UpsertUser(record models.User, password string) error {
	if record.Username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, idx := s.findUserLocked(record.Username)
	if idx < 0 {
		if password == "" {
			return fmt.Errorf("%w: a password is required for a new user", ErrValidation)
		}
		if err := s.policy.Check(password); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return err
		}
		user := models.User{
			Username:  record.Username,
			Password:  string(hash),
			Email:     record.Email,
			FirstName: record.FirstName,
			LastName:  record.LastName,
			Roles:     append([]string(nil), record.Roles...),
			Version:   1,
		}
		prev := s.doc.Users
		s.doc.Users = append(s.doc.Users, user)
		if err := s.persistLocked(); err != nil {
			s.doc.Users = prev
			return err
		}
		return nil
	}

	updated := existing
	updated.Email = record.Email
	updated.FirstName = record.FirstName
	updated.LastName = record.LastName
	updated.Roles = append([]string(nil), record.Roles...)

	if password != "" {
		if err := s.policy.Check(password); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return err
		}
		updated.Password = string(hash)
		updated.Version++
	} else if !slices.Equal(existing.Roles, updated.Roles) {
		updated.Version++
	}

	s.doc.Users[idx] = updated
	if err := s.persistLocked(); err != nil {
		s.doc.Users[idx] = existing
		return err
	}
	return nil
}

// UpdateProfile changes the non-credential fields of an account.
func (s *UserStore) UpdateProfile(username, email, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, idx := s.findUserLocked(username)
	if idx < 0 {
		return ErrNotFound
	}
	s.doc.Users[idx].Email = email
	s.doc.Users[idx].FirstName = firstName
	s.doc.Users[idx].LastName = lastName
	if err := s.persistLocked(); err != nil {
		s.doc.Users[idx] = existing
		return err
	}
	return nil
}

// DeleteUser removes an account.
func (s *UserStore) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx := s.findUserLocked(username)
	if idx < 0 {
		return ErrNotFound
	}
	prev := s.doc.Users
	s.doc.Users = append(s.doc.Users[:idx:idx], s.doc.Users[idx+1:]...)
	if err := s.persistLocked(); err != nil {
		s.doc.Users = prev
		return err
	}
	return nil
}

// ListRoles returns copies of all role records.
func (s *UserStore) ListRoles() []models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone().Roles
}

// UpsertRole creates or replaces a role definition. Users referencing the
// role by name pick up the change on their next request.
func (s *UserStore) UpsertRole(record models.Role) error {
	if record.Name == "" {
		return fmt.Errorf("%w: role name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record.Categories = append([]string(nil), record.Categories...)

	idx := -1
	for i, r := range s.doc.Roles {
		if r.Name == record.Name {
			idx = i
			break
		}
	}

	prev := s.doc.Clone().Roles
	if idx < 0 {
		s.doc.Roles = append(s.doc.Roles, record)
	} else {
		s.doc.Roles[idx] = record
	}
	if err := s.persistLocked(); err != nil {
		s.doc.Roles = prev
		return err
	}
	return nil
}

// DeleteRole removes a role. User references to it become dangling, which
// simply degrades to "no extra access".
func (s *UserStore) DeleteRole(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.doc.Roles {
		if r.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	prev := s.doc.Roles
	s.doc.Roles = append(s.doc.Roles[:idx:idx], s.doc.Roles[idx+1:]...)
	if err := s.persistLocked(); err != nil {
		s.doc.Roles = prev
		return err
	}
	return nil
}

func (s *UserStore) findUserLocked(username string) (models.User, int) {
	for i, u := range s.doc.Users {
		if u.Username == username {
			u.Roles = append([]string(nil), u.Roles...)
			return u, i
		}
	}
	return models.User{}, -1
}

func (s *UserStore) persistLocked() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return err
	}
	// 0600: the file holds password hashes (and possibly legacy plaintext).
	return writeFileAtomic(s.path, data, 0o600)
}

func decodeCredentialDocument(data []byte) (*models.CredentialDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	doc := &models.CredentialDocument{}
	if err := dec.Decode(doc); err != nil && err != io.EOF {
		return nil, err
	}
	return doc, nil
}

func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

func randomPassword() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// dummyHash keeps the missing-user path as slow as the wrong-password path.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("launchdeck-dummy"), bcrypt.DefaultCost)
