package repositories

import (
	"fmt"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB.
// Each post has a record under post:<id> and an ordering key under
// idx:post:<millisPosted><id> so pages can be read newest first with a reverse iterator.
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

func postKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", PostKeyPrefix, id))
}

func postIndexKey(post *models.Post) []byte {
	key := appendSortable([]byte(PostIndexPrefix), post.MillisPosted)
	return appendSortable(key, int64(post.ID))
}

// Create allocates an id in its own transaction, calls stage, then writes the record.
// A failing stage leaves no record behind and its id is never handed out again.
func (r *BadgerPostRepository) Create(post *models.Post, stage func(*models.Post) error) error {
	post.BeforeCreate()

	err := update(r.db, func(txn *badger.Txn) error {
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id
		return nil
	})
	if err != nil {
		return err
	}

	if stage != nil {
		if err := stage(post); err != nil {
			return err
		}
	}

	data, err := marshalEntity(post)
	if err != nil {
		return err
	}
	return update(r.db, func(txn *badger.Txn) error {
		if err := txn.Set(postKey(post.ID), data); err != nil {
			return err
		}
		return txn.Set(postIndexKey(post), nil)
	})
}

// FindByID retrieves a post by ID
func (r *BadgerPostRepository) FindByID(id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Save persists changes to an existing post. Only the Deleted flag may change, and
// only from false to true; every other field is fixed at creation.
func (r *BadgerPostRepository) Save(post *models.Post) error {
	return update(r.db, func(txn *badger.Txn) error {
		var existing models.Post
		if err := getEntity(txn, postKey(post.ID), &existing); err != nil {
			return err
		}
		if !existing.SameContent(post) {
			return fmt.Errorf("%w: post %d may only change its deleted flag", ErrImmutableField, post.ID)
		}
		if existing.Deleted && !post.Deleted {
			return fmt.Errorf("%w: post %d cannot be restored", ErrImmutableField, post.ID)
		}

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		return txn.Set(postKey(post.ID), data)
	})
}

// FindPage walks the ordering index newest first and collects the requested page.
func (r *BadgerPostRepository) FindPage(page, size int, includeDeleted bool) ([]*models.Post, int, error) {
	window, err := newPageWindow(page, size)
	if err != nil {
		return nil, 0, err
	}

	posts := []*models.Post{}
	matched := 0
	err = r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostIndexPrefix)
		for it.Seek(reverseSeekKey(prefix, 2)); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id := int(readSortable(key[len(key)-8:]))

			var post models.Post
			if err := getEntity(txn, postKey(id), &post); err != nil {
				return fmt.Errorf("failed to load indexed post %d: %w", id, err)
			}
			if post.Deleted && !includeDeleted {
				continue
			}
			if window.contains(matched) {
				posts = append(posts, &post)
			}
			matched++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return posts, TotalPages(matched, size), nil
}
