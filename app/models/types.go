package models

import (
	"io"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// MaxTitleLength bounds both the HTML and plaintext post titles.
const MaxTitleLength = 256

var (
	validate = newValidator()

	usernamePattern = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// PostState is the lifecycle of a post. The only transition is Active to Deleted.
type PostState int

const (
	PostActive PostState = iota
	PostDeleted
)

func (s PostState) String() string {
	if s == PostDeleted {
		return "deleted"
	}
	return "active"
}

// Post represents a published blog post. The index document and assets live in the blob store.
type Post struct {
	ID             int      `json:"id" validate:"gte=0"`
	TitleHTML      string   `json:"titleHtml" validate:"max=256"`
	TitlePlaintext string   `json:"titlePlaintext" validate:"max=256"`
	AuthorID       int      `json:"authorId" validate:"gt=0"`
	MillisPosted   int64    `json:"millisPosted" validate:"gte=0"`
	Tags           []string `json:"tags"`
	IndexAssetPath string   `json:"indexAssetPath" validate:"required"`
	AssetPaths     []string `json:"assetPaths"`
	Deleted        bool     `json:"deleted"`
}

// Comment represents a comment on a blog post.
// OriginalAuthorIP is persisted for moderation and must not be rendered to readers.
type Comment struct {
	ID               int    `json:"id" validate:"gte=0"`
	PostID           int    `json:"postId" validate:"gt=0"`
	AuthorID         int    `json:"authorId" validate:"gt=0"`
	MillisPosted     int64  `json:"millisPosted" validate:"gte=0"`
	Content          string `json:"content"`
	OriginalAuthorIP string `json:"originalAuthorIp"`
	Deleted          bool   `json:"deleted"`
}

// Asset is a named byte stream on its way into the blob store. It is never persisted as a record.
type Asset struct {
	Name string
	Data io.Reader
}

// User is an account. Unclaimed accounts are created for first-time commenters and have no password.
type User struct {
	ID               int      `json:"id" validate:"gte=0"`
	Name             string   `json:"name" validate:"required,username"`
	Email            string   `json:"email" validate:"omitempty,email"`
	LastIP           string   `json:"lastIp"`
	PasswordHash     string   `json:"passwordHash,omitempty"`
	Roles            []string `json:"roles"`
	EmailVerified    bool     `json:"emailVerified"`
	AccountDisabled  bool     `json:"accountDisabled"`
	ShadowBanned     bool     `json:"shadowBanned"`
	UnclaimedAccount bool     `json:"unclaimedAccount"`
}

// Author is the moderation view of a user needed to decide content visibility.
type Author struct {
	ID                int
	Name              string
	IsShadowBanned    bool
	IsAccountDisabled bool
}
