package services

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"inkpost/app/config"
	"inkpost/app/models"
	"inkpost/app/repositories/mock"
	"inkpost/app/storage"

	"github.com/stretchr/testify/require"
)

type blogFixture struct {
	svc      *BlogService
	posts    *mock.PostRepository
	comments *mock.CommentRepository
	blobs    *storage.FileBlobStore
}

func newBlogFixture(t *testing.T, cfg config.BlogConfig) *blogFixture {
	t.Helper()
	blobs, err := storage.NewFileBlobStore(t.TempDir(), cfg.IOTransferBuffer)
	require.NoError(t, err)

	f := &blogFixture{
		posts:    mock.NewPostRepository(),
		comments: mock.NewCommentRepository(),
		blobs:    blobs,
	}
	f.svc = NewBlogService(f.posts, f.comments, blobs, cfg)

	// Every call gets a later timestamp so ordering is deterministic.
	var mu sync.Mutex
	clock := time.UnixMilli(1_700_000_000_000)
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Millisecond)
		return clock
	}
	return f
}

func indexAsset(body string) models.Asset {
	return models.Asset{Name: "index.html", Data: bytes.NewBufferString(body)}
}

func (f *blogFixture) makePost(t *testing.T) *models.Post {
	t.Helper()
	post, err := f.svc.MakePost("<h1>Hi</h1>", "Hi", 7, []string{"a"}, indexAsset("<p>body</p>"))
	require.NoError(t, err)
	return post
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

// failingBlobStore fails the Save call with the given ordinal and records cleanups.
type failingBlobStore struct {
	storage.BlobStore
	failOn  int
	saves   int
	removed []string
}

var errDiskFull = errors.New("disk full")

func (s *failingBlobStore) Save(data io.Reader, category, identifier string) error {
	s.saves++
	if s.saves == s.failOn {
		return errDiskFull
	}
	return s.BlobStore.Save(data, category, identifier)
}

func (s *failingBlobStore) RemoveCategory(category string) error {
	s.removed = append(s.removed, category)
	return s.BlobStore.RemoveCategory(category)
}

func idsOf(comments []*models.Comment) []int {
	ids := make([]int, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	return ids
}
