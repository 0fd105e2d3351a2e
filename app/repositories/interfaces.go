package repositories

import (
	"errors"

	"inkpost/app/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidPage    = errors.New("invalid page request")
	ErrImmutableField = errors.New("immutable field changed")
	ErrNameTaken      = errors.New("name already taken")
	ErrEmailTaken     = errors.New("email already registered")
)

// PostRepository defines the interface for post data access.
// Posts are never hard deleted; Save persists the Deleted flag.
type PostRepository interface {
	// Create assigns the id, runs stage with the numbered post, and persists the record only if stage succeeds.
	Create(post *models.Post, stage func(*models.Post) error) error
	FindByID(id int) (*models.Post, error)
	Save(post *models.Post) error
	// FindPage returns page (zero based) ordered newest first, and the total page count under the same filter.
	FindPage(page, size int, includeDeleted bool) ([]*models.Post, int, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindPage(postID, page, size int, includeDeleted bool) ([]*models.Comment, int, error)
}

// UserRepository defines the interface for account data access
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id int) (*models.User, error)
	FindByIDs(ids []int) ([]*models.User, error)
	FindByName(name string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Save(user *models.User) error
}
