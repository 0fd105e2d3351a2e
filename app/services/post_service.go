package services

import (
	"fmt"
	"io"
	"unicode/utf8"

	"inkpost/app/apperrors"
	"inkpost/app/models"

	"github.com/rs/zerolog/log"
)

// GetPost returns an active post. Deleted posts fail with Gone.
func (s *BlogService) GetPost(postID int) (*models.Post, error) {
	post, err := s.findActivePost(postID)
	if err != nil {
		return nil, err
	}
	log.Info().Int("postId", postID).Msg("Found post with post id")
	return post, nil
}

// GetIndex opens the index document of an active post. The caller must close the stream.
func (s *BlogService) GetIndex(postID int) (io.ReadCloser, error) {
	post, err := s.findActivePost(postID)
	if err != nil {
		return nil, err
	}

	rc, err := s.blobs.Load(postCategory(postID), post.IndexAssetPath)
	if err != nil {
		// Every stored post has an index, so any failure here is an internal fault.
		log.Error().Err(err).Int("postId", postID).Str("indexPath", post.IndexAssetPath).Msg("Failed to load post index")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "",
			fmt.Sprintf("failed to load index %q of post %d", post.IndexAssetPath, postID))
	}
	return rc, nil
}

// GetAsset opens a named asset of a post. Deleted posts still serve their assets so pages
// that are already rendered keep working. The caller must close the stream.
func (s *BlogService) GetAsset(postID int, assetName string) (io.ReadCloser, error) {
	if _, err := s.findPost(postID); err != nil {
		return nil, err
	}

	rc, err := s.blobs.Load(postAssetsCategory(postID), assetName)
	if err != nil {
		log.Info().Err(err).Int("postId", postID).Str("assetName", assetName).Msg("Could not load post asset")
		return nil, err
	}
	return rc, nil
}

// MakePost creates a post and stores its index and assets.
// The record only becomes visible after every blob has been written.
func (s *BlogService) MakePost(titleHTML, titlePlaintext string, authorID int, tags []string,
	index models.Asset, assets ...models.Asset) (*models.Post, error) {
	if utf8.RuneCountInString(titleHTML) > models.MaxTitleLength {
		log.Info().Int("authorId", authorID).Int("titleLength", utf8.RuneCountInString(titleHTML)).
			Msg("Rejected post because the html title is too long")
		return nil, apperrors.New(apperrors.InvalidArgument,
			fmt.Sprintf("Title html must not be more than %d characters long", models.MaxTitleLength),
			"title html too long")
	}
	if index.Data == nil {
		return nil, apperrors.New(apperrors.InvalidArgument, "A post needs an index document.", "index asset has no data")
	}

	// Work on copies so the caller's assets keep their names.
	assets = append([]models.Asset(nil), assets...)
	if !s.cfg.PersistOriginalFileNames {
		for i := range assets {
			assets[i].Name = PositionToName(uint(i))
		}
		index.Name = PositionToName(0)
		log.Info().Int("authorId", authorID).Msg("Remapped uploaded file names")
	}
	if index.Name == "" {
		index.Name = DefaultIndexName
	}

	if tags == nil {
		tags = []string{}
	}
	assetPaths := []string{}
	for _, a := range assets {
		if a.Name != "" {
			assetPaths = append(assetPaths, a.Name)
		}
	}

	post := &models.Post{
		TitleHTML:      titleHTML,
		TitlePlaintext: titlePlaintext,
		AuthorID:       authorID,
		MillisPosted:   s.now().UnixMilli(),
		Tags:           tags,
		IndexAssetPath: index.Name,
		AssetPaths:     assetPaths,
	}
	if err := post.Validate(); err != nil {
		log.Info().Err(err).Int("authorId", authorID).Msg("Rejected invalid post")
		return nil, apperrors.Wrap(apperrors.InvalidArgument, err, "The post is missing required fields or a title is too long.",
			"post failed validation")
	}

	staged := false
	err := s.posts.Create(post, func(p *models.Post) error {
		if err := s.storePostBlobs(p.ID, index, assets); err != nil {
			return err
		}
		staged = true
		return nil
	})
	if err != nil && staged {
		// The blobs made it to disk but the record did not.
		if rmErr := s.blobs.RemoveCategory(postCategory(post.ID)); rmErr != nil {
			log.Error().Err(rmErr).Int("postId", post.ID).Msg("Failed to clean up files of discarded post")
		}
	}
	if err != nil {
		if apperrors.KindOf(err) == apperrors.InvalidArgument || apperrors.KindOf(err) == apperrors.StorageIOError {
			return nil, err
		}
		log.Error().Err(err).Int("authorId", authorID).Msg("Failed to create post record")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to create post record")
	}

	log.Info().Int("authorId", authorID).Int("postId", post.ID).Msg("Created new blog post")
	return post, nil
}

// storePostBlobs writes the index and assets of a new post, removing everything on failure.
func (s *BlogService) storePostBlobs(postID int, index models.Asset, assets []models.Asset) error {
	err := s.blobs.Save(index.Data, postCategory(postID), index.Name)
	if err == nil {
		log.Info().Int("postId", postID).Str("indexPath", index.Name).Msg("Saved blog post index")
		for _, asset := range assets {
			if asset.Name == "" || asset.Data == nil {
				continue
			}
			if err = s.blobs.Save(asset.Data, postAssetsCategory(postID), asset.Name); err != nil {
				break
			}
			log.Info().Int("postId", postID).Str("assetPath", asset.Name).Msg("Saved blog post asset")
		}
	}
	if err == nil {
		return nil
	}

	log.Warn().Err(err).Int("postId", postID).Msg("Failed to store post files, discarding post")
	if rmErr := s.blobs.RemoveCategory(postCategory(postID)); rmErr != nil {
		log.Error().Err(rmErr).Int("postId", postID).Msg("Failed to clean up files of discarded post")
	}
	return err
}

// DeletePost soft deletes a post. Its blobs are kept. Deleting a deleted post is a no-op.
func (s *BlogService) DeletePost(postID int) error {
	post, err := s.findPost(postID)
	if err != nil {
		return err
	}
	if !post.MarkDeleted() {
		log.Info().Int("postId", postID).Msg("Post was already deleted")
		return nil
	}
	if err := s.posts.Save(post); err != nil {
		log.Error().Err(err).Int("postId", postID).Msg("Failed to delete post")
		return apperrors.Wrap(apperrors.StorageIOError, err, "", fmt.Sprintf("failed to save deleted post %d", postID))
	}
	log.Info().Int("postId", postID).Msg("Deleted post")
	return nil
}

// GetFeaturedPosts returns one page of active posts, newest first. Pages start at zero.
func (s *BlogService) GetFeaturedPosts(page int) ([]*models.Post, error) {
	posts, _, err := s.posts.FindPage(page, s.cfg.FeaturedPageSize, false)
	if err != nil {
		log.Error().Err(err).Int("page", page).Msg("Failed to load featured posts")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to load featured posts")
	}
	return posts, nil
}

// GetFeaturedPostsTotalPages returns how many featured pages exist.
func (s *BlogService) GetFeaturedPostsTotalPages() (int, error) {
	_, total, err := s.posts.FindPage(0, s.cfg.FeaturedPageSize, false)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count featured posts")
		return 0, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to count featured posts")
	}
	return total, nil
}
