package repositories

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// KeyPrefix defines the key prefixes for different entity types
const (
	PostKeyPrefix      = "post:"
	CommentKeyPrefix   = "comment:"
	UserKeyPrefix      = "user:"
	UserNameKeyPrefix  = "user_name:"
	UserEmailKeyPrefix = "user_email:"
	// Ordering indexes: prefix followed by big-endian sort fields, empty value
	PostIndexPrefix    = "idx:post:"
	CommentIndexPrefix = "idx:comment:"
	// For sequences (auto-incrementing IDs)
	PostSeqKey    = "seq:post"
	CommentSeqKey = "seq:comment"
	UserSeqKey    = "seq:user"
)

const maxConflictRetries = 10

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id int
	item, err := txn.Get([]byte(seqKey))
	if err == badger.ErrKeyNotFound {
		id = 1
	} else if err != nil {
		return 0, fmt.Errorf("failed to get sequence: %w", err)
	} else {
		err = item.Value(func(val []byte) error {
			id, err = strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("failed to parse sequence: %w", err)
			}
			id++
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	// Update the sequence
	err = txn.Set([]byte(seqKey), []byte(strconv.Itoa(id)))
	if err != nil {
		return 0, fmt.Errorf("failed to update sequence: %w", err)
	}

	return id, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent writer wins the commit.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// marshalEntity marshals an entity to JSON
func marshalEntity(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// getEntity loads key into v, translating a missing key to ErrNotFound.
func getEntity(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, v)
	})
}

// appendSortable appends v so that byte order matches signed integer order.
func appendSortable(b []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(b, uint64(v)^(1<<63))
}

func readSortable(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// reverseSeekKey returns a key that sorts after every index key under prefix.
func reverseSeekKey(prefix []byte, sortFields int) []byte {
	key := append([]byte{}, prefix...)
	for i := 0; i < sortFields*8+1; i++ {
		key = append(key, 0xFF)
	}
	return key
}

// TotalPages is ceil(count/size), zero when count is zero.
func TotalPages(count, size int) int {
	if size <= 0 || count <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// pageWindow is the half-open range of matches that belong on a page.
type pageWindow struct {
	start, end int
}

func newPageWindow(page, size int) (pageWindow, error) {
	if size <= 0 {
		return pageWindow{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidPage, size)
	}
	if page < 0 {
		return pageWindow{start: -1, end: -1}, nil
	}
	return pageWindow{start: page * size, end: page*size + size}, nil
}

func (w pageWindow) contains(i int) bool {
	return i >= w.start && i < w.end
}
