package services

import (
	"fmt"

	"inkpost/app/apperrors"
	"inkpost/app/models"

	"github.com/rs/zerolog/log"
)

// AnonymousViewer is the viewer id of a request without an account. Ids start at 1.
const AnonymousViewer = 0

// AuthorResolver looks up the author behind an id.
type AuthorResolver func(id int) (models.Author, error)

// Visible reports whether content by authorID may be shown to viewerID.
// Shadow-banned authors only see their own content.
func Visible(authorID, viewerID int, resolve AuthorResolver) (bool, error) {
	author, err := resolve(authorID)
	if err != nil {
		return false, err
	}
	return !author.IsShadowBanned || author.ID == viewerID, nil
}

// FilterPosts drops posts the viewer may not see. An author that cannot be resolved fails the whole call.
func FilterPosts(posts []*models.Post, viewerID int, resolve AuthorResolver) ([]*models.Post, error) {
	resolve = memoize(resolve)
	visible := make([]*models.Post, 0, len(posts))
	for _, post := range posts {
		ok, err := Visible(post.AuthorID, viewerID, resolve)
		if err != nil {
			log.Warn().Err(err).Int("postId", post.ID).Int("authorId", post.AuthorID).Msg("Could not resolve post author")
			return nil, apperrors.Wrap(apperrors.Unresolvable, err, "Something went wrong while getting the post",
				fmt.Sprintf("author %d of post %d cannot be resolved", post.AuthorID, post.ID))
		}
		if !ok {
			log.Warn().Int("postId", post.ID).Int("authorId", post.AuthorID).
				Msg("Removing post because the author is shadow banned")
			continue
		}
		visible = append(visible, post)
	}
	return visible, nil
}

// FilterComments drops comments the viewer may not see. Comments whose author cannot be
// resolved are dropped with a warning instead of failing the page.
func FilterComments(comments []*models.Comment, viewerID int, resolve AuthorResolver) []*models.Comment {
	resolve = memoize(resolve)
	visible := make([]*models.Comment, 0, len(comments))
	for _, comment := range comments {
		ok, err := Visible(comment.AuthorID, viewerID, resolve)
		if err != nil {
			log.Warn().Err(err).Int("commentId", comment.ID).Int("authorId", comment.AuthorID).Int("postId", comment.PostID).
				Msg("Excluded comment because its author could not be found")
			continue
		}
		if !ok {
			log.Warn().Int("commentId", comment.ID).Int("authorId", comment.AuthorID).Int("postId", comment.PostID).
				Msg("Excluded comment because its author is shadow banned")
			continue
		}
		visible = append(visible, comment)
	}
	return visible
}

// ResolverFor adapts a UserDirectory to an AuthorResolver.
func ResolverFor(dir UserDirectory) AuthorResolver {
	return dir.ResolveByID
}

// ResolverFromUsers resolves only among already loaded users, so an id outside users is unresolvable.
func ResolverFromUsers(users []*models.User) AuthorResolver {
	byID := make(map[int]models.Author, len(users))
	for _, u := range users {
		byID[u.ID] = u.Author()
	}
	return func(id int) (models.Author, error) {
		author, ok := byID[id]
		if !ok {
			return models.Author{}, apperrors.New(apperrors.NotFound, "", fmt.Sprintf("user %d not loaded", id))
		}
		return author, nil
	}
}

type resolved struct {
	author models.Author
	err    error
}

// memoize caches lookups for the duration of one filter call.
func memoize(resolve AuthorResolver) AuthorResolver {
	cache := map[int]resolved{}
	return func(id int) (models.Author, error) {
		if r, ok := cache[id]; ok {
			return r.author, r.err
		}
		author, err := resolve(id)
		cache[id] = resolved{author, err}
		return author, err
	}
}
