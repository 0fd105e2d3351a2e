package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentValidation(t *testing.T) {
	tests := []struct {
		name    string
		comment *Comment
		wantErr bool
	}{
		{
			name: "valid comment",
			comment: &Comment{
				PostID:   1,
				AuthorID: 2,
				Content:  "This is a valid comment",
			},
			wantErr: false,
		},
		{
			name: "empty content is allowed",
			comment: &Comment{
				PostID:   1,
				AuthorID: 2,
			},
			wantErr: false,
		},
		{
			name: "missing post",
			comment: &Comment{
				AuthorID: 2,
				Content:  "orphan",
			},
			wantErr: true,
		},
		{
			name: "missing author",
			comment: &Comment{
				PostID:  1,
				Content: "anonymous",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.comment.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCommentBeforeCreate(t *testing.T) {
	comment := &Comment{
		PostID:   1,
		AuthorID: 1,
		Content:  "Test Comment",
	}

	assert.Zero(t, comment.MillisPosted)
	comment.BeforeCreate()
	assert.NotZero(t, comment.MillisPosted)
}

func TestCommentSetPost(t *testing.T) {
	comment := &Comment{
		AuthorID: 3,
		Content:  "Test Comment",
	}

	t.Run("set valid post", func(t *testing.T) {
		err := comment.SetPost(&Post{ID: 12})
		assert.NoError(t, err)
		assert.Equal(t, 12, comment.PostID)
	})

	t.Run("set nil post", func(t *testing.T) {
		err := comment.SetPost(nil)
		assert.Error(t, err)
	})
}
