package routes

import (
	"net/http"

	"inkpost/app/controllers"
	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/services"

	"github.com/gorilla/mux"
)

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(blog *services.BlogService, users *services.UserService) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.TraceID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Authenticate(users))

	postController := controllers.NewPostController(blog, users)
	commentController := controllers.NewCommentController(blog, users)
	publish := middleware.RequireRole(models.RoleMakePosts)

	api := router.PathPrefix("/api").Subrouter()

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods(http.MethodGet)
	posts.Handle("", publish(http.HandlerFunc(postController.Create))).Methods(http.MethodPost)
	posts.HandleFunc("/{id:[0-9]+}", postController.Show).Methods(http.MethodGet)
	posts.Handle("/{id:[0-9]+}", publish(http.HandlerFunc(postController.Delete))).Methods(http.MethodDelete)
	posts.HandleFunc("/{id:[0-9]+}/index", postController.Document).Methods(http.MethodGet)
	posts.HandleFunc("/{id:[0-9]+}/assets/{name:.+}", postController.Asset).Methods(http.MethodGet)

	// Comments API endpoints
	posts.HandleFunc("/{id:[0-9]+}/comments", commentController.Index).Methods(http.MethodGet)
	posts.HandleFunc("/{id:[0-9]+}/comments", commentController.Create).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(notFound)
	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, r, http.StatusNotFound, "Not found")
}
