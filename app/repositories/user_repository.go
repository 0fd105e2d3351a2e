package repositories

import (
	"fmt"
	"strings"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerUserRepository implements UserRepository using BadgerDB.
// Names and emails are unique through lookup keys that point at the user id.
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

func userKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", UserKeyPrefix, id))
}

func userNameKey(name string) []byte {
	return []byte(UserNameKeyPrefix + name)
}

func userEmailKey(email string) []byte {
	return []byte(UserEmailKeyPrefix + strings.ToLower(email))
}

// Create registers a new user, failing with ErrNameTaken or ErrEmailTaken on collisions.
func (r *BadgerUserRepository) Create(user *models.User) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := r.claimLookups(txn, user, nil); err != nil {
			return err
		}

		id, err := getNextID(txn, UserSeqKey)
		if err != nil {
			return err
		}
		user.ID = id

		if err := r.setLookups(txn, user); err != nil {
			return err
		}
		data, err := marshalEntity(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
}

// FindByID retrieves a user by ID
func (r *BadgerUserRepository) FindByID(id int) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users that exist among ids, in the order given. Unknown ids are skipped.
func (r *BadgerUserRepository) FindByIDs(ids []int) ([]*models.User, error) {
	users := []*models.User{}
	seen := make(map[int]bool, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			var user models.User
			err := getEntity(txn, userKey(id), &user)
			if err == ErrNotFound {
				continue
			}
			if err != nil {
				return err
			}
			users = append(users, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// FindByName retrieves a user by exact name
func (r *BadgerUserRepository) FindByName(name string) (*models.User, error) {
	return r.findByLookup(userNameKey(name))
}

// FindByEmail retrieves a user by email, ignoring case
func (r *BadgerUserRepository) FindByEmail(email string) (*models.User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	return r.findByLookup(userEmailKey(email))
}

// Save updates an existing user, moving name and email lookups when they change.
func (r *BadgerUserRepository) Save(user *models.User) error {
	return update(r.db, func(txn *badger.Txn) error {
		var existing models.User
		if err := getEntity(txn, userKey(user.ID), &existing); err != nil {
			return err
		}
		if err := r.claimLookups(txn, user, &existing); err != nil {
			return err
		}

		if existing.Name != user.Name {
			if err := txn.Delete(userNameKey(existing.Name)); err != nil {
				return err
			}
		}
		if existing.Email != "" && !strings.EqualFold(existing.Email, user.Email) {
			if err := txn.Delete(userEmailKey(existing.Email)); err != nil {
				return err
			}
		}
		if err := r.setLookups(txn, user); err != nil {
			return err
		}

		data, err := marshalEntity(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
}

func (r *BadgerUserRepository) findByLookup(key []byte) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := lookupID(txn, key)
		if err != nil {
			return err
		}
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// claimLookups fails if user's name or email belongs to an account other than existing.
func (r *BadgerUserRepository) claimLookups(txn *badger.Txn, user *models.User, existing *models.User) error {
	owner := 0
	if existing != nil {
		owner = existing.ID
	}

	id, err := lookupID(txn, userNameKey(user.Name))
	if err == nil && id != owner {
		return fmt.Errorf("%w: %s", ErrNameTaken, user.Name)
	}
	if err != nil && err != ErrNotFound {
		return err
	}

	if user.Email == "" {
		return nil
	}
	id, err = lookupID(txn, userEmailKey(user.Email))
	if err == nil && id != owner {
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	}
	if err != nil && err != ErrNotFound {
		return err
	}
	return nil
}

func (r *BadgerUserRepository) setLookups(txn *badger.Txn, user *models.User) error {
	id := []byte(fmt.Sprintf("%d", user.ID))
	if err := txn.Set(userNameKey(user.Name), id); err != nil {
		return err
	}
	if user.Email != "" {
		return txn.Set(userEmailKey(user.Email), id)
	}
	return nil
}

func lookupID(txn *badger.Txn, key []byte) (int, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		_, err := fmt.Sscanf(string(val), "%d", &id)
		return err
	})
	return id, err
}
