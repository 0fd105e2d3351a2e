package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inkpost/app/apperrors"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// DefaultTransferBuffer is the copy buffer size used when none is configured.
const DefaultTransferBuffer = 1024

// BlobStore stores byte streams under a trusted category and a possibly untrusted identifier.
type BlobStore interface {
	Save(data io.Reader, category, identifier string) error
	Load(category, identifier string) (io.ReadCloser, error)
	RemoveCategory(category string) error
}

// FileBlobStore keeps blobs as plain files below a root directory.
type FileBlobStore struct {
	root       string
	bufferSize int
}

// NewFileBlobStore creates the root directory if needed.
func NewFileBlobStore(root string, bufferSize int) (*FileBlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to create storage root "+abs)
	}
	if bufferSize <= 0 {
		bufferSize = DefaultTransferBuffer
	}
	return &FileBlobStore{root: abs, bufferSize: bufferSize}, nil
}

// Root returns the absolute storage root.
func (s *FileBlobStore) Root() string {
	return s.root
}

// Save streams data to category/identifier, replacing any existing object.
// The data is written to a temporary file first so concurrent readers see either the old or the new object.
func (s *FileBlobStore) Save(data io.Reader, category, identifier string) error {
	path, err := s.resolve(category, identifier)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("category", category).Str("identifier", identifier).Msg("Failed to create blob directory")
		return apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to create directory "+dir)
	}

	start := time.Now()
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		log.Error().Err(err).Str("category", category).Str("identifier", identifier).Msg("Failed to create blob")
		return apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to create temporary file in "+dir)
	}
	tmpName := tmp.Name()

	// The wrappers hide ReaderFrom/WriterTo so the copy always goes through the bounded buffer.
	written, err := io.CopyBuffer(struct{ io.Writer }{tmp}, struct{ io.Reader }{data}, make([]byte, s.bufferSize))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		log.Error().Err(err).
			Str("category", category).
			Str("identifier", identifier).
			Dur("elapsed", time.Since(start)).
			Msg("Failed to save blob")
		return apperrors.Wrap(apperrors.StorageIOError, err, "", fmt.Sprintf("failed to save %s/%s", category, identifier))
	}

	log.Info().
		Str("category", category).
		Str("identifier", identifier).
		Str("size", humanize.Bytes(uint64(written))).
		Dur("elapsed", time.Since(start)).
		Msg("Wrote blob")
	return nil
}

// Load opens category/identifier for reading. The caller must close the returned stream.
func (s *FileBlobStore) Load(category, identifier string) (io.ReadCloser, error) {
	path, err := s.resolve(category, identifier)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.Wrap(apperrors.NotFound, err, "The requested file does not exist.",
			fmt.Sprintf("blob %s/%s does not exist", category, identifier))
	}
	if err != nil {
		log.Error().Err(err).Str("category", category).Str("identifier", identifier).Msg("Failed to open blob")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", fmt.Sprintf("failed to open %s/%s", category, identifier))
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", fmt.Sprintf("failed to stat %s/%s", category, identifier))
	}
	if info.IsDir() {
		f.Close()
		return nil, apperrors.New(apperrors.NotFound, "The requested file does not exist.",
			fmt.Sprintf("blob %s/%s is a directory", category, identifier))
	}
	return f, nil
}

// RemoveCategory deletes everything stored under category. Category must be a trusted relative path.
func (s *FileBlobStore) RemoveCategory(category string) error {
	clean := filepath.Clean(filepath.FromSlash(category))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return apperrors.New(apperrors.InvalidArgument, "", "refusing to remove category "+category)
	}
	if err := os.RemoveAll(filepath.Join(s.root, clean)); err != nil {
		return apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to remove category "+category)
	}
	return nil
}

// resolve maps category/identifier to a file path below the root.
// Every identifier segment but the last extends the category, and the final file must stay inside
// that extended directory. A ".." anywhere in the identifier therefore never resolves.
func (s *FileBlobStore) resolve(category, identifier string) (string, error) {
	if filepath.IsAbs(identifier) || strings.HasPrefix(identifier, "/") || strings.HasPrefix(identifier, `\`) {
		log.Warn().Str("category", category).Str("identifier", identifier).Msg("Rejected absolute blob identifier")
		return "", apperrors.New(apperrors.InvalidArgument, "Invalid file identifier.",
			"identifier must not be an absolute path")
	}

	parts := strings.FieldsFunc(identifier, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return "", apperrors.New(apperrors.InvalidArgument, "Invalid file identifier.", "identifier is empty")
	}
	leaf := parts[len(parts)-1]
	sub := parts[:len(parts)-1]

	categoryDir := filepath.Join(s.root, filepath.FromSlash(category))
	implied := categoryDir
	for _, seg := range sub {
		if seg == ".." {
			return "", s.traversal(category, identifier, filepath.Join(categoryDir, filepath.Join(sub...)))
		}
		implied = filepath.Join(implied, seg)
	}

	path := filepath.Join(implied, leaf)
	if !strings.HasPrefix(path, implied+string(filepath.Separator)) || !strings.HasPrefix(implied, s.root) {
		return "", s.traversal(category, identifier, path)
	}
	return path, nil
}

func (s *FileBlobStore) traversal(category, identifier, target string) error {
	log.Warn().
		Str("category", category).
		Str("identifier", identifier).
		Str("resolvedTo", target).
		Msg("Path traversal attempt detected")
	return apperrors.New(apperrors.InvalidArgument, "Invalid file identifier.", "path traversal attempt")
}
