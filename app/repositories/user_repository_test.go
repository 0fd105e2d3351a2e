package repositories

import (
	"testing"

	"inkpost/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	repo := newTestStore(t).Users()

	alice := &models.User{Name: "alice", Email: "Alice@Example.com", Roles: models.DefaultUserRoles}
	require.NoError(t, repo.Create(alice))
	assert.Equal(t, 1, alice.ID)

	t.Run("find by id name and email", func(t *testing.T) {
		byID, err := repo.FindByID(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice, byID)

		byName, err := repo.FindByName("alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byName.ID)

		byEmail, err := repo.FindByEmail("alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)
	})

	t.Run("missing lookups", func(t *testing.T) {
		_, err := repo.FindByID(404)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindByName("Alice")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindByEmail("")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("uniqueness", func(t *testing.T) {
		err := repo.Create(&models.User{Name: "alice", Email: "other@example.com"})
		assert.ErrorIs(t, err, ErrNameTaken)

		err = repo.Create(&models.User{Name: "alice2", Email: "ALICE@example.com"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("users without email do not collide", func(t *testing.T) {
		require.NoError(t, repo.Create(&models.User{Name: "anon1"}))
		require.NoError(t, repo.Create(&models.User{Name: "anon2"}))
	})

	t.Run("find many skips unknown ids", func(t *testing.T) {
		users, err := repo.FindByIDs([]int{alice.ID, 999, alice.ID})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Name)
	})

	t.Run("save moves lookups", func(t *testing.T) {
		bob := &models.User{Name: "bob", Email: "bob@example.com"}
		require.NoError(t, repo.Create(bob))

		bob.Name = "robert"
		bob.Email = "robert@example.com"
		bob.ShadowBanned = true
		require.NoError(t, repo.Save(bob))

		_, err := repo.FindByName("bob")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindByEmail("bob@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		found, err := repo.FindByName("robert")
		require.NoError(t, err)
		assert.True(t, found.ShadowBanned)

		found.Name = "alice"
		assert.ErrorIs(t, repo.Save(found), ErrNameTaken)
	})

	t.Run("save keeps own lookups", func(t *testing.T) {
		alice.AccountDisabled = true
		require.NoError(t, repo.Save(alice))

		found, err := repo.FindByEmail("alice@example.com")
		require.NoError(t, err)
		assert.True(t, found.AccountDisabled)
	})
}
