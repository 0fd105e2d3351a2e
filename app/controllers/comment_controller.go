package controllers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"inkpost/app/apperrors"
	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/services"

	"github.com/rs/zerolog/log"
)

// maxCommentBody bounds the JSON body of a new comment.
const maxCommentBody = 64 << 10

// CommentController handles HTTP requests for comments
type CommentController struct {
	blog  *services.BlogService
	users *services.UserService
}

// NewCommentController creates a new CommentController
func NewCommentController(blog *services.BlogService, users *services.UserService) *CommentController {
	return &CommentController{blog: blog, users: users}
}

// commentResponse is what readers see of a comment. The author's address is never included.
type commentResponse struct {
	ID           int    `json:"id"`
	PostID       int    `json:"postId"`
	AuthorID     int    `json:"authorId"`
	AuthorName   string `json:"authorName"`
	MillisPosted int64  `json:"millisPosted"`
	Content      string `json:"content"`
}

func newCommentResponse(c *models.Comment, authorName string) commentResponse {
	return commentResponse{
		ID:           c.ID,
		PostID:       c.PostID,
		AuthorID:     c.AuthorID,
		AuthorName:   authorName,
		MillisPosted: c.MillisPosted,
		Content:      c.Content,
	}
}

type createCommentRequest struct {
	Content  string `json:"content"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Index lists one page of a post's comments. Without a page, or with a negative one, the last page is shown.
func (cc *CommentController) Index(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, err)
		return
	}
	page, given, err := queryPage(r)
	if err != nil {
		sendError(w, r, err)
		return
	}

	totalPages, err := cc.blog.GetCommentsTotalPages(postID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	lastPage := totalPages - 1
	if lastPage < 0 {
		lastPage = 0
	}
	if !given || page < 0 {
		page = lastPage
	}

	comments, err := cc.blog.GetComments(postID, page)
	if err != nil {
		sendError(w, r, err)
		return
	}

	ids := make([]int, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	authors, err := cc.users.GetManyUsersWithIDs(ids)
	if err != nil {
		sendError(w, r, err)
		return
	}
	resolve := services.ResolverFromUsers(authors)
	visible := services.FilterComments(comments, middleware.ViewerID(r.Context()), resolve)

	out := make([]commentResponse, 0, len(visible))
	for _, c := range visible {
		author, _ := resolve(c.AuthorID)
		out = append(out, newCommentResponse(c, author.Name))
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"comments":   out,
		"page":       page,
		"lastPage":   lastPage,
		"totalPages": totalPages,
	})
}

// Create posts a comment as the logged in user, or on behalf of an unclaimed account.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, err)
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommentBody)).Decode(&req); err != nil {
		sendError(w, r, apperrors.Wrap(apperrors.InvalidArgument, err, "Invalid JSON", "failed to decode comment"))
		return
	}

	ip := clientIP(r)
	author, err := cc.commentAuthor(r, req, ip)
	if err != nil {
		sendError(w, r, err)
		return
	}
	if author.AccountDisabled {
		log.Info().Int("userId", author.ID).Int("postId", postID).Msg("Disabled account tried to comment")
		sendError(w, r, apperrors.New(apperrors.Forbidden, "Your account has been disabled.", "account disabled"))
		return
	}
	if !author.HasRole(models.RoleMakeComments) {
		sendError(w, r, apperrors.New(apperrors.Forbidden, "You are not allowed to comment.", "missing comment role"))
		return
	}

	comment, err := cc.blog.MakeComment(postID, author.ID, req.Content, ip)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, newCommentResponse(comment, author.Name))
}

// commentAuthor picks who a comment is attributed to: the authenticated viewer, an unclaimed
// account owning the given email, or a new unclaimed account.
func (cc *CommentController) commentAuthor(r *http.Request, req createCommentRequest, ip string) (*models.User, error) {
	if user := middleware.CurrentUser(r.Context()); user != nil {
		return user, nil
	}

	if req.Email != "" {
		user, err := cc.users.GetUserWithEmail(req.Email)
		switch {
		case err == nil && user.UnclaimedAccount:
			return user, nil
		case err == nil:
			return nil, apperrors.New(apperrors.Forbidden,
				"An account with that email already exists. Please log in to comment.", "email belongs to a claimed account")
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, err
		}
	}

	return cc.users.RegisterDummyUser(req.Username, req.Email, ip)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
