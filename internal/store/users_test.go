package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"launchdeck/internal/models"
)

func testPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, MinClasses: 2}
}

func newTestUserStore(t *testing.T) *UserStore {
	t.Helper()
	s, err := OpenUserStore(filepath.Join(t.TempDir(), "users.yaml"), bcryptCostForTests, testPolicy())
	require.NoError(t, err)
	return s
}

// bcrypt at the default cost makes the suite crawl; the minimum cost is
// fine for tests.
const bcryptCostForTests = 4

func writeCredentialFile(t *testing.T, doc *models.CredentialDocument) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestBootstrapSeedsAdminOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")

	s, err := OpenUserStore(path, bcryptCostForTests, testPolicy())
	require.NoError(t, err)

	users := s.ListUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)

	roles := s.ListRoles()
	require.Len(t, roles, 1)
	assert.True(t, roles[0].IsAdmin)

	// Reopening must load the seeded file, not seed again.
	again, err := OpenUserStore(path, bcryptCostForTests, testPolicy())
	require.NoError(t, err)
	assert.Len(t, again.ListUsers(), 1)
}

func TestAuthenticate(t *testing.T) {
	s := newTestUserStore(t)
	require.NoError(t, s.UpsertUser(models.User{Username: "bob", Roles: []string{"Viewer"}}, "Sup3rSecret"))

	t.Run("Correct Password", func(t *testing.T) {
		user, err := s.Authenticate("bob", "Sup3rSecret")
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		_, err := s.Authenticate("bob", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown User Same Error", func(t *testing.T) {
		_, err := s.Authenticate("ghost", "Sup3rSecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPlaintextMigration(t *testing.T) {
	path := writeCredentialFile(t, &models.CredentialDocument{
		Users: []models.User{{Username: "old", Password: "legacy-pass", Version: 1}},
	})
	s, err := OpenUserStore(path, bcryptCostForTests, testPolicy())
	require.NoError(t, err)

	_, err = s.Authenticate("old", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// First successful login rewrites the stored value as a hash.
	_, err = s.Authenticate("old", "legacy-pass")
	require.NoError(t, err)

	stored, ok := s.GetUser("old")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(stored.Password, "$2"), "password must be hashed after migration")

	// Second login succeeds via the hashed path and does not rewrite.
	hashBefore := stored.Password
	_, err = s.Authenticate("old", "legacy-pass")
	require.NoError(t, err)
	stored, _ = s.GetUser("old")
	assert.Equal(t, hashBefore, stored.Password)

	// The migrated hash survives a reload.
	reopened, err := OpenUserStore(path, bcryptCostForTests, testPolicy())
	require.NoError(t, err)
	_, err = reopened.Authenticate("old", "legacy-pass")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	s := newTestUserStore(t)
	require.NoError(t, s.UpsertUser(models.User{Username: "bob"}, "Sup3rSecret"))

	t.Run("Wrong Old Password", func(t *testing.T) {
		err := s.ChangePassword("bob", "nope", "NewPassw0rd")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Weak New Password", func(t *testing.T) {
		err := s.ChangePassword("bob", "Sup3rSecret", "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("Success Bumps Version", func(t *testing.T) {
		before, _ := s.GetUser("bob")
		require.NoError(t, s.ChangePassword("bob", "Sup3rSecret", "NewPassw0rd"))

		after, _ := s.GetUser("bob")
		assert.Equal(t, before.Version+1, after.Version)

		_, err := s.Authenticate("bob", "NewPassw0rd")
		assert.NoError(t, err)
		_, err = s.Authenticate("bob", "Sup3rSecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordPolicy(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Too Short", "Ab1", true},
		{"One Class Only", "alllowercase", true},
		{"Two Classes", "lowerUPPER", false},
		{"Digits And Symbols", "1234!@#$%^&*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpsertUser(t *testing.T) {
	s := newTestUserStore(t)

	t.Run("New User Requires Password", func(t *testing.T) {
		err := s.UpsertUser(models.User{Username: "bob"}, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("New User Password Is Hashed", func(t *testing.T) {
		require.NoError(t, s.UpsertUser(models.User{Username: "bob"}, "Sup3rSecret"))
		stored, ok := s.GetUser("bob")
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(stored.Password, "$2"))
		assert.EqualValues(t, 1, stored.Version)
	})

	t.Run("Caller Supplied Hash Is Treated As Plaintext", func(t *testing.T) {
		fakeHash := "$2a$10$abcdefghijklmnopqrstuvwxyz012345678901234567890123456"
		require.NoError(t, s.UpsertUser(models.User{Username: "mallory"}, fakeHash))

		// Logging in with the literal string works; the injected "hash"
		// never became the stored credential.
		_, err := s.Authenticate("mallory", fakeHash)
		assert.NoError(t, err)
	})

	t.Run("Role Change Bumps Version", func(t *testing.T) {
		before, _ := s.GetUser("bob")
		require.NoError(t, s.UpsertUser(models.User{Username: "bob", Roles: []string{"Viewer"}}, ""))
		after, _ := s.GetUser("bob")
		assert.Equal(t, before.Version+1, after.Version)
	})

	t.Run("Profile Update Keeps Version", func(t *testing.T) {
		before, _ := s.GetUser("bob")
		require.NoError(t, s.UpsertUser(models.User{Username: "bob", Email: "bob@example.com", Roles: before.Roles}, ""))
		after, _ := s.GetUser("bob")
		assert.Equal(t, before.Version, after.Version)
		assert.Equal(t, "bob@example.com", after.Email)
	})
}

func TestDeleteUser(t *testing.T) {
	s := newTestUserStore(t)
	require.NoError(t, s.UpsertUser(models.User{Username: "bob"}, "Sup3rSecret"))

	require.NoError(t, s.DeleteUser("bob"))
	_, ok := s.GetUser("bob")
	assert.False(t, ok)

	assert.ErrorIs(t, s.DeleteUser("bob"), ErrNotFound)
}

func TestRoleCRUD(t *testing.T) {
	s := newTestUserStore(t)

	require.NoError(t, s.UpsertRole(models.Role{Name: "Viewer", Categories: []string{"Dev"}}))
	require.NoError(t, s.UpsertRole(models.Role{Name: "Viewer", Categories: []string{"Dev", "Ops"}}))

	var viewer *models.Role
	for _, r := range s.ListRoles() {
		if r.Name == "Viewer" {
			viewer = &r
			break
		}
	}
	require.NotNil(t, viewer)
	assert.Equal(t, []string{"Dev", "Ops"}, viewer.Categories)

	assert.ErrorIs(t, s.UpsertRole(models.Role{}), ErrValidation)

	require.NoError(t, s.DeleteRole("Viewer"))
	assert.ErrorIs(t, s.DeleteRole("Viewer"), ErrNotFound)
}

func TestCredentialVersion(t *testing.T) {
	s := newTestUserStore(t)
	require.NoError(t, s.UpsertUser(models.User{Username: "bob"}, "Sup3rSecret"))

	v, ok := s.CredentialVersion("bob")
	assert.True(t, ok)
	assert.EqualValues(t, 1, v)

	_, ok = s.CredentialVersion("ghost")
	assert.False(t, ok)
}
