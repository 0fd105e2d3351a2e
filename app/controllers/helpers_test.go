package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkpost/app/config"
	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/repositories/mock"
	"inkpost/app/services"
	"inkpost/app/storage"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

const adminPassword = "correct horse"

type testApp struct {
	router *mux.Router
	blog   *services.BlogService
	users  *services.UserService
	admin  *models.User
}

func setupTestApp(t *testing.T, cfg config.BlogConfig) *testApp {
	t.Helper()
	blobs, err := storage.NewFileBlobStore(t.TempDir(), cfg.IOTransferBuffer)
	require.NoError(t, err)

	blog := services.NewBlogService(mock.NewPostRepository(), mock.NewCommentRepository(), blobs, cfg)
	users := services.NewUserService(mock.NewUserRepository(),
		config.UsersConfig{RegistrationsEnabled: true, DummyRegistrationsEnabled: true})
	admin, err := users.RegisterUser("admin", "admin@example.com", adminPassword, models.AdminRoles...)
	require.NoError(t, err)

	return &testApp{
		router: setupRouter(blog, users),
		blog:   blog,
		users:  users,
		admin:  admin,
	}
}

func setupRouter(blog *services.BlogService, users *services.UserService) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.TraceID)
	router.Use(middleware.Authenticate(users))

	pc := NewPostController(blog, users)
	cc := NewCommentController(blog, users)
	publish := middleware.RequireRole(models.RoleMakePosts)

	router.HandleFunc("/posts", pc.Index).Methods("GET")
	router.Handle("/posts", publish(http.HandlerFunc(pc.Create))).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}", pc.Show).Methods("GET")
	router.Handle("/posts/{id:[0-9]+}", publish(http.HandlerFunc(pc.Delete))).Methods("DELETE")
	router.HandleFunc("/posts/{id:[0-9]+}/index", pc.Document).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/assets/{name:.+}", pc.Asset).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/comments", cc.Index).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/comments", cc.Create).Methods("POST")
	return router
}

type upload struct {
	field    string
	filename string
	body     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func asAdmin(req *http.Request) *http.Request {
	req.SetBasicAuth("admin", adminPassword)
	return req
}

func (a *testApp) publish(t *testing.T, title string, files ...upload) int {
	t.Helper()
	if len(files) == 0 {
		files = []upload{{"index", "index.html", []byte("<p>" + title + "</p>")}}
	}
	body, contentType := multipartBody(t, map[string]string{
		"titleHtml":      "<b>" + title + "</b>",
		"titlePlaintext": title,
		"tags":           "go, blog",
	}, files...)
	req := httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := a.do(asAdmin(req))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	return created.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
