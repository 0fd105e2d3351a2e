package repositories

import (
	"fmt"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

func commentKey(postID, id int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", CommentKeyPrefix, postID, id))
}

func commentIndexPrefix(postID int) []byte {
	return appendSortable([]byte(CommentIndexPrefix), int64(postID))
}

func commentIndexKey(comment *models.Comment) []byte {
	key := appendSortable(commentIndexPrefix(comment.PostID), comment.MillisPosted)
	return appendSortable(key, int64(comment.ID))
}

// Create creates a new comment
func (r *BadgerCommentRepository) Create(comment *models.Comment) error {
	comment.BeforeCreate()
	return update(r.db, func(txn *badger.Txn) error {
		// Get next ID
		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		data, err := marshalEntity(comment)
		if err != nil {
			return err
		}

		// Save comment with post ID in key for efficient listing
		if err := txn.Set(commentKey(comment.PostID, comment.ID), data); err != nil {
			return err
		}
		return txn.Set(commentIndexKey(comment), nil)
	})
}

// FindPage retrieves one page of a post's comments, newest first
func (r *BadgerCommentRepository) FindPage(postID, page, size int, includeDeleted bool) ([]*models.Comment, int, error) {
	window, err := newPageWindow(page, size)
	if err != nil {
		return nil, 0, err
	}

	comments := []*models.Comment{}
	matched := 0
	err = r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := commentIndexPrefix(postID)
		for it.Seek(reverseSeekKey(prefix, 2)); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id := int(readSortable(key[len(key)-8:]))

			var comment models.Comment
			if err := getEntity(txn, commentKey(postID, id), &comment); err != nil {
				return fmt.Errorf("failed to load indexed comment %d: %w", id, err)
			}
			if comment.Deleted && !includeDeleted {
				continue
			}
			if window.contains(matched) {
				comments = append(comments, &comment)
			}
			matched++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return comments, TotalPages(matched, size), nil
}
