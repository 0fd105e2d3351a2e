package services

import (
	"testing"

	"inkpost/app/apperrors"
	"inkpost/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(calls *int) AuthorResolver {
	users := []*models.User{
		{ID: 1, Name: "alice"},
		{ID: 2, Name: "mallory", ShadowBanned: true},
		{ID: 3, Name: "bob", AccountDisabled: true},
	}
	resolve := ResolverFromUsers(users)
	return func(id int) (models.Author, error) {
		*calls++
		return resolve(id)
	}
}

func TestVisible(t *testing.T) {
	var calls int
	resolve := testResolver(&calls)

	tests := []struct {
		name    string
		author  int
		viewer  int
		want    bool
		wantErr bool
	}{
		{"regular author to anonymous", 1, AnonymousViewer, true, false},
		{"regular author to other user", 1, 3, true, false},
		{"shadow banned author to anonymous", 2, AnonymousViewer, false, false},
		{"shadow banned author to other user", 2, 1, false, false},
		{"shadow banned author to self", 2, 2, true, false},
		{"disabled author is still visible", 3, AnonymousViewer, true, false},
		{"unknown author", 42, 1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Visible(tt.author, tt.viewer, resolve)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterPosts(t *testing.T) {
	posts := []*models.Post{
		{ID: 10, AuthorID: 1},
		{ID: 11, AuthorID: 2},
		{ID: 12, AuthorID: 1},
		{ID: 13, AuthorID: 2},
	}

	t.Run("hides shadow banned authors from others", func(t *testing.T) {
		var calls int
		visible, err := FilterPosts(posts, AnonymousViewer, testResolver(&calls))
		require.NoError(t, err)
		assert.Len(t, visible, 2)
		assert.Equal(t, 10, visible[0].ID)
		assert.Equal(t, 12, visible[1].ID)
		assert.Equal(t, 2, calls, "each author is resolved once per call")
	})

	t.Run("shadow banned author sees own posts", func(t *testing.T) {
		var calls int
		visible, err := FilterPosts(posts, 2, testResolver(&calls))
		require.NoError(t, err)
		assert.Len(t, visible, 4)
	})

	t.Run("unresolvable author fails the call", func(t *testing.T) {
		var calls int
		withOrphan := append([]*models.Post{{ID: 14, AuthorID: 99}}, posts...)
		_, err := FilterPosts(withOrphan, AnonymousViewer, testResolver(&calls))
		assert.ErrorIs(t, err, apperrors.ErrUnresolvable)
	})

	t.Run("empty input", func(t *testing.T) {
		var calls int
		visible, err := FilterPosts(nil, AnonymousViewer, testResolver(&calls))
		require.NoError(t, err)
		assert.Empty(t, visible)
	})
}

func TestFilterComments(t *testing.T) {
	comments := []*models.Comment{
		{ID: 1, PostID: 5, AuthorID: 1},
		{ID: 2, PostID: 5, AuthorID: 99},
		{ID: 3, PostID: 5, AuthorID: 2},
		{ID: 4, PostID: 5, AuthorID: 3},
	}

	var calls int
	visible := FilterComments(comments, AnonymousViewer, testResolver(&calls))
	assert.Equal(t, []int{1, 4}, idsOf(visible))

	visible = FilterComments(comments, 2, testResolver(&calls))
	assert.Equal(t, []int{1, 3, 4}, idsOf(visible))
}

func TestResolverForUserService(t *testing.T) {
	svc := newTestUserService(openRegistrations())
	user, err := svc.RegisterDummyUser("hidden", "", "")
	require.NoError(t, err)
	_, err = svc.SetShadowBanned(user.ID, true)
	require.NoError(t, err)

	ok, err := Visible(user.ID, AnonymousViewer, ResolverFor(svc))
	require.NoError(t, err)
	assert.False(t, ok)
}
