package repositories

import (
	"bytes"
	"os"
	"testing"

	"inkpost/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreBackupRestore(t *testing.T) {
	source := newTestStore(t)
	post := newPost(1000)
	require.NoError(t, source.Posts().Create(post, nil))
	comment := &models.Comment{PostID: post.ID, AuthorID: 2, Content: "kept", MillisPosted: 1001}
	require.NoError(t, source.Comments().Create(comment))
	user := &models.User{Name: "keeper", Email: "keeper@example.com"}
	require.NoError(t, source.Users().Create(user))

	var dump bytes.Buffer
	_, err := source.Backup(&dump)
	require.NoError(t, err)

	target, err := NewInMemoryStore()
	require.NoError(t, err)
	defer target.Close()
	require.NoError(t, target.Restore(&dump))

	restored, err := target.Posts().FindByID(post.ID)
	require.NoError(t, err)
	assert.Equal(t, post, restored)

	posts, total, err := target.Posts().FindPage(0, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, posts, 1)

	comments, _, err := target.Comments().FindPage(post.ID, 0, 10, false)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "kept", comments[0].Content)

	byEmail, err := target.Users().FindByEmail("keeper@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	// Sequences travel with the dump, so new ids never collide with restored ones.
	next := newPost(2000)
	require.NoError(t, target.Posts().Create(next, nil))
	assert.Greater(t, next.ID, post.ID)
}

func TestStoreClose(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)
	path := store.dbPath

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "throwaway database must be removed")
}
