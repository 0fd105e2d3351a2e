package services

import (
	"fmt"
	"unicode/utf8"

	"inkpost/app/apperrors"
	"inkpost/app/models"

	"github.com/rs/zerolog/log"
)

// MakeComment validates and stores a comment on an active post.
//
// When comment posting is disabled the attempt is logged and the comment is still stored.
// That matches the behavior this service has always had and is awaiting a product decision.
func (s *BlogService) MakeComment(postID, authorID int, content, authorIP string) (*models.Comment, error) {
	logContent := truncateForLog(content, s.cfg.CommentContentLogCharacterLimit)

	if !s.cfg.CommentPostingEnabled {
		log.Info().Int("postId", postID).Int("authorId", authorID).Str("content", logContent).
			Msg("Comment posting is disabled")
	}

	if length := utf8.RuneCountInString(content); length > s.cfg.MaxCommentContentSize {
		log.Info().Int("postId", postID).Int("authorId", authorID).Int("length", length).Str("content", logContent).
			Msg("Rejected comment because it is too long")
		return nil, apperrors.New(apperrors.InvalidArgument,
			fmt.Sprintf("Your comment must be less than %d characters long", s.cfg.MaxCommentContentSize),
			fmt.Sprintf("comment length %d exceeds %d", length, s.cfg.MaxCommentContentSize))
	}

	if newlines := countNewlines(content); newlines > s.cfg.MaxCommentNewlineCount {
		log.Info().Int("postId", postID).Int("authorId", authorID).Int("newlineCount", newlines).Str("content", logContent).
			Msg("Rejected comment because it has too many newlines")
		return nil, apperrors.New(apperrors.InvalidArgument, "Your comment contains too many newlines",
			fmt.Sprintf("comment has %d newlines, limit is %d", newlines, s.cfg.MaxCommentNewlineCount))
	}

	post, err := s.findActivePost(postID)
	if err != nil {
		log.Info().Int("postId", postID).Int("authorId", authorID).Str("content", logContent).
			Msg("Rejected comment on unavailable post")
		return nil, err
	}

	comment := &models.Comment{
		AuthorID:         authorID,
		MillisPosted:     s.now().UnixMilli(),
		Content:          content,
		OriginalAuthorIP: authorIP,
	}
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}
	if err := comment.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidArgument, err, "Unable to post this comment.", "comment failed validation")
	}
	if err := s.comments.Create(comment); err != nil {
		log.Error().Err(err).Int("postId", postID).Int("authorId", authorID).Msg("Failed to save comment")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to save comment")
	}

	log.Info().Int("postId", postID).Int("authorId", authorID).Int("commentId", comment.ID).Str("content", logContent).
		Msg("User made comment on post")
	return comment, nil
}

// GetComments returns one page of a post's comments, newest first.
func (s *BlogService) GetComments(postID, page int) ([]*models.Comment, error) {
	if _, err := s.findActivePost(postID); err != nil {
		return nil, err
	}
	comments, _, err := s.comments.FindPage(postID, page, s.cfg.CommentPageSize, false)
	if err != nil {
		log.Error().Err(err).Int("postId", postID).Int("page", page).Msg("Failed to load comments")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to load comments")
	}
	return comments, nil
}

// GetCommentsTotalPages returns how many comment pages a post has.
func (s *BlogService) GetCommentsTotalPages(postID int) (int, error) {
	if _, err := s.findActivePost(postID); err != nil {
		return 0, err
	}
	_, total, err := s.comments.FindPage(postID, 0, s.cfg.CommentPageSize, false)
	if err != nil {
		log.Error().Err(err).Int("postId", postID).Msg("Failed to count comments")
		return 0, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to count comments")
	}
	return total, nil
}
