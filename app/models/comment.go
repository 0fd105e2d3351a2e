package models

import (
	"time"
)

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	return validate.Struct(c)
}

// BeforeCreate stamps the creation time
func (c *Comment) BeforeCreate() {
	if c.MillisPosted == 0 {
		c.MillisPosted = time.Now().UnixMilli()
	}
	c.Deleted = false
}

// SetPost attaches the comment to a post
func (c *Comment) SetPost(post *Post) error {
	if post == nil {
		return errNilPost
	}
	c.PostID = post.ID
	return nil
}
