package controllers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"

	"inkpost/app/apperrors"
	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/services"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// maxUploadMemory is how much of a multipart upload is buffered in memory before spilling to disk.
const maxUploadMemory = 32 << 20

// sniffLength matches the number of bytes mimetype inspects by default.
const sniffLength = 3072

// PostController handles HTTP requests for blog posts
type PostController struct {
	blog  *services.BlogService
	users *services.UserService
}

// NewPostController creates a new PostController
func NewPostController(blog *services.BlogService, users *services.UserService) *PostController {
	return &PostController{blog: blog, users: users}
}

type postResponse struct {
	*models.Post
	AuthorName string `json:"authorName"`
}

// Index handles listing the featured posts
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, _, err := queryPage(r)
	if err != nil {
		sendError(w, r, err)
		return
	}

	posts, err := pc.blog.GetFeaturedPosts(page)
	if err != nil {
		sendError(w, r, err)
		return
	}
	totalPages, err := pc.blog.GetFeaturedPostsTotalPages()
	if err != nil {
		sendError(w, r, err)
		return
	}

	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	authors, err := pc.users.GetManyUsersWithIDs(ids)
	if err != nil {
		sendError(w, r, err)
		return
	}
	resolve := services.ResolverFromUsers(authors)
	visible, err := services.FilterPosts(posts, middleware.ViewerID(r.Context()), resolve)
	if err != nil {
		sendError(w, r, err)
		return
	}

	out := make([]postResponse, 0, len(visible))
	for _, p := range visible {
		author, _ := resolve(p.AuthorID)
		out = append(out, postResponse{Post: p, AuthorName: author.Name})
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"posts":      out,
		"page":       page,
		"totalPages": totalPages,
	})
}

// visiblePost loads an active post the viewer is allowed to see.
// Posts of shadow-banned authors look like missing posts to everyone but their author.
func (pc *PostController) visiblePost(r *http.Request) (*models.Post, models.Author, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, models.Author{}, err
	}
	post, err := pc.blog.GetPost(id)
	if err != nil {
		return nil, models.Author{}, err
	}
	author, err := pc.users.ResolveByID(post.AuthorID)
	if err != nil {
		return nil, models.Author{}, apperrors.Wrap(apperrors.Unresolvable, err, "", "author of post cannot be resolved")
	}
	if author.IsShadowBanned && author.ID != middleware.ViewerID(r.Context()) {
		log.Warn().Int("postId", id).Int("authorId", author.ID).Msg("Hid post of shadow banned author")
		return nil, models.Author{}, apperrors.New(apperrors.NotFound, "No post with that id exists.", "post author is shadow banned")
	}
	return post, author, nil
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, author, err := pc.visiblePost(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, postResponse{Post: post, AuthorName: author.Name})
}

// Document streams the index document of a post as HTML.
func (pc *PostController) Document(w http.ResponseWriter, r *http.Request) {
	post, _, err := pc.visiblePost(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	rc, err := pc.blog.GetIndex(post.ID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Int("postId", post.ID).Msg("Failed to stream post index")
	}
}

// Asset streams a file belonging to a post with a sniffed content type.
func (pc *PostController) Asset(w http.ResponseWriter, r *http.Request) {
	post, _, err := pc.visiblePost(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	name := mux.Vars(r)["name"]
	rc, err := pc.blog.GetAsset(post.ID, name)
	if err != nil {
		sendError(w, r, err)
		return
	}
	defer rc.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		sendError(w, r, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to read asset "+name))
		return
	}
	head = head[:n]

	w.Header().Set("Content-Type", mimetype.Detect(head).String())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(name)}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(head); err == nil {
		_, err = io.Copy(w, rc)
		if err != nil {
			log.Warn().Err(err).Int("postId", post.ID).Str("assetName", name).Msg("Failed to stream post asset")
		}
	}
}

// Create handles publishing a new post from a multipart upload
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		sendError(w, r, apperrors.Wrap(apperrors.InvalidArgument, err, "Expected a multipart upload.", "failed to parse multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	indexFile, indexHeader, err := r.FormFile("index")
	if err != nil {
		sendError(w, r, apperrors.Wrap(apperrors.InvalidArgument, err, "A post needs an index document.", "missing index file"))
		return
	}
	defer indexFile.Close()

	var assets []models.Asset
	for _, fh := range r.MultipartForm.File["assets"] {
		f, err := fh.Open()
		if err != nil {
			sendError(w, r, apperrors.Wrap(apperrors.InvalidArgument, err, "Could not read an uploaded file.", "failed to open upload"))
			return
		}
		defer func(f multipart.File) { f.Close() }(f)
		assets = append(assets, models.Asset{Name: fh.Filename, Data: f})
	}

	post, err := pc.blog.MakePost(
		r.FormValue("titleHtml"),
		r.FormValue("titlePlaintext"),
		user.ID,
		services.SplitTags(r.FormValue("tags")),
		models.Asset{Name: indexHeader.Filename, Data: indexFile},
		assets...,
	)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, postResponse{Post: post, AuthorName: user.Name})
}

// Delete handles deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, err)
		return
	}
	if err := pc.blog.DeletePost(id); err != nil {
		sendError(w, r, err)
		return
	}
	log.Info().Int("postId", id).Int("userId", middleware.ViewerID(r.Context())).Msg("Post deleted by user")
	w.WriteHeader(http.StatusNoContent)
}
