package models

import (
	"errors"
	"slices"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	return validate.Struct(p)
}

// BeforeCreate stamps the creation time and resets the lifecycle
func (p *Post) BeforeCreate() {
	if p.MillisPosted == 0 {
		p.MillisPosted = time.Now().UnixMilli()
	}
	p.Deleted = false
}

// State reports the lifecycle state stored in the Deleted flag.
func (p *Post) State() PostState {
	if p.Deleted {
		return PostDeleted
	}
	return PostActive
}

// MarkDeleted moves the post to PostDeleted. It reports whether the state changed.
func (p *Post) MarkDeleted() bool {
	if p.State() == PostDeleted {
		return false
	}
	p.Deleted = true
	return true
}

// SameContent reports whether two posts agree on everything except the Deleted flag.
// Nil and empty tag or asset lists are treated as equal.
func (p *Post) SameContent(other *Post) bool {
	return p.ID == other.ID &&
		p.TitleHTML == other.TitleHTML &&
		p.TitlePlaintext == other.TitlePlaintext &&
		p.AuthorID == other.AuthorID &&
		p.MillisPosted == other.MillisPosted &&
		p.IndexAssetPath == other.IndexAssetPath &&
		slices.Equal(p.Tags, other.Tags) &&
		slices.Equal(p.AssetPaths, other.AssetPaths)
}

var errNilPost = errors.New("post cannot be nil")
