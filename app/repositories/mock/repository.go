package mock

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"inkpost/app/models"
	"inkpost/app/repositories"
)

// PostRepository is an in-memory repositories.PostRepository.
type PostRepository struct {
	posts  map[int]*models.Post
	nextID int
	mutex  sync.RWMutex
	// FailSave makes Save return this error when set.
	FailSave error
	// FailCommit makes Create return this error after its stage succeeded.
	FailCommit error
}

// CommentRepository is an in-memory repositories.CommentRepository.
type CommentRepository struct {
	comments map[int]*models.Comment
	nextID   int
	mutex    sync.RWMutex
}

// UserRepository is an in-memory repositories.UserRepository.
type UserRepository struct {
	users  map[int]*models.User
	nextID int
	mutex  sync.RWMutex
}

var (
	_ repositories.PostRepository    = (*PostRepository)(nil)
	_ repositories.CommentRepository = (*CommentRepository)(nil)
	_ repositories.UserRepository    = (*UserRepository)(nil)
)

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:  make(map[int]*models.Post),
		nextID: 1,
	}
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{
		comments: make(map[int]*models.Comment),
		nextID:   1,
	}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[int]*models.User),
		nextID: 1,
	}
}

func (m *PostRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[int]*models.Post)
	m.nextID = 1
}

// Len returns the number of stored posts, deleted ones included.
func (m *PostRepository) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.posts)
}

// PostRepository implementation
func (m *PostRepository) Create(post *models.Post, stage func(*models.Post) error) error {
	post.BeforeCreate()

	m.mutex.Lock()
	post.ID = m.nextID
	m.nextID++
	m.mutex.Unlock()

	if stage != nil {
		if err := stage(post); err != nil {
			return err
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.FailCommit != nil {
		return m.FailCommit
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) FindByID(id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (m *PostRepository) Save(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.FailSave != nil {
		return m.FailSave
	}
	existing, exists := m.posts[post.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	if !existing.SameContent(post) || (existing.Deleted && !post.Deleted) {
		return repositories.ErrImmutableField
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) FindPage(page, size int, includeDeleted bool) ([]*models.Post, int, error) {
	if size <= 0 {
		return nil, 0, fmt.Errorf("%w: size %d", repositories.ErrInvalidPage, size)
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var all []*models.Post
	for _, post := range m.posts {
		if post.Deleted && !includeDeleted {
			continue
		}
		copied := *post
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].MillisPosted != all[j].MillisPosted {
			return all[i].MillisPosted > all[j].MillisPosted
		}
		return all[i].ID > all[j].ID
	})
	return slicePage(all, page, size), repositories.TotalPages(len(all), size), nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(comment *models.Comment) error {
	comment.BeforeCreate()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	comment.ID = m.nextID
	m.nextID++
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

// Delete flags a stored comment as deleted.
func (m *CommentRepository) Delete(id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return repositories.ErrNotFound
	}
	comment.Deleted = true
	return nil
}

func (m *CommentRepository) FindPage(postID, page, size int, includeDeleted bool) ([]*models.Comment, int, error) {
	if size <= 0 {
		return nil, 0, fmt.Errorf("%w: size %d", repositories.ErrInvalidPage, size)
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var all []*models.Comment
	for _, comment := range m.comments {
		if comment.PostID != postID || (comment.Deleted && !includeDeleted) {
			continue
		}
		copied := *comment
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].MillisPosted != all[j].MillisPosted {
			return all[i].MillisPosted > all[j].MillisPosted
		}
		return all[i].ID > all[j].ID
	})
	return slicePage(all, page, size), repositories.TotalPages(len(all), size), nil
}

// UserRepository implementation
func (m *UserRepository) Create(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkUnique(user); err != nil {
		return err
	}
	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) FindByID(id int) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *UserRepository) FindByIDs(ids []int) ([]*models.User, error) {
	var users []*models.User
	seen := make(map[int]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if user, err := m.FindByID(id); err == nil {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *UserRepository) FindByName(name string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Name == name })
}

func (m *UserRepository) FindByEmail(email string) (*models.User, error) {
	if email == "" {
		return nil, repositories.ErrNotFound
	}
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *UserRepository) Save(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[user.ID]; !exists {
		return repositories.ErrNotFound
	}
	if err := m.checkUnique(user); err != nil {
		return err
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, user := range m.users {
		if match(user) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *UserRepository) checkUnique(user *models.User) error {
	for _, other := range m.users {
		if other.ID == user.ID {
			continue
		}
		if other.Name == user.Name {
			return repositories.ErrNameTaken
		}
		if user.Email != "" && strings.EqualFold(other.Email, user.Email) {
			return repositories.ErrEmailTaken
		}
	}
	return nil
}

func slicePage[T any](all []T, page, size int) []T {
	start := page * size
	if page < 0 || start >= len(all) {
		return []T{}
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
