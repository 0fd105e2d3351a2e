package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"inkpost/app/apperrors"
	"inkpost/app/config"
	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/storage"

	"github.com/rs/zerolog/log"
)

// DefaultIndexName is used when a post's index asset arrives without a name.
const DefaultIndexName = "index.html"

// BlogService owns posts, comments and their blobs, and enforces the moderation policy.
// It keeps no mutable state between calls; all durable state is in the repositories and blob store.
type BlogService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	blobs    storage.BlobStore
	cfg      config.BlogConfig
	now      func() time.Time
}

// NewBlogService creates a BlogService. cfg is copied, so later changes to the caller's value have no effect.
func NewBlogService(posts repositories.PostRepository, comments repositories.CommentRepository,
	blobs storage.BlobStore, cfg config.BlogConfig) *BlogService {
	return &BlogService{
		posts:    posts,
		comments: comments,
		blobs:    blobs,
		cfg:      cfg,
		now:      time.Now,
	}
}

func postCategory(postID int) string {
	return fmt.Sprintf("blog/%d", postID)
}

func postAssetsCategory(postID int) string {
	return fmt.Sprintf("blog/%d/assets", postID)
}

// findPost loads a post regardless of its state.
func (s *BlogService) findPost(postID int) (*models.Post, error) {
	post, err := s.posts.FindByID(postID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info().Int("postId", postID).Msg("Requested post does not exist")
		return nil, apperrors.New(apperrors.NotFound, "No post with that id exists.",
			fmt.Sprintf("post %d does not exist", postID))
	}
	if err != nil {
		log.Error().Err(err).Int("postId", postID).Msg("Failed to load post")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", fmt.Sprintf("failed to load post %d", postID))
	}
	return post, nil
}

// findActivePost loads a post and rejects it with Gone once it has been deleted.
func (s *BlogService) findActivePost(postID int) (*models.Post, error) {
	post, err := s.findPost(postID)
	if err != nil {
		return nil, err
	}
	if post.State() == models.PostDeleted {
		log.Info().Int("postId", postID).Msg("Requested post has been deleted")
		return nil, apperrors.New(apperrors.Gone, "This post has been deleted.",
			fmt.Sprintf("post %d has been deleted", postID))
	}
	return post, nil
}

// truncateForLog shortens user supplied text before it is written to a log.
func truncateForLog(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit])
}

// countNewlines counts line terminators the way a line-numbering reader does:
// "\r\n" counts once, a lone "\r" or "\n" counts once each.
func countNewlines(content string) int {
	count := 0
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			count++
		case '\r':
			count++
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
		}
	}
	return count
}

// SplitTags turns a comma separated tag list into trimmed tags.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tags = append(tags, strings.TrimSpace(p))
	}
	return tags
}
