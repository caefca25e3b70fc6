package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Accounts and sessions.
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/users/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("DELETE /api/users/me", s.requireAuth(s.handleDeleteMe))

	// Images.
	mux.HandleFunc("GET /api/images", s.requireAuth(s.handleListImages))
	mux.HandleFunc("POST /api/images", s.requireAuth(s.handleUploadImage))
	mux.HandleFunc("POST /api/images/delete", s.requireAuth(s.handleDeleteImages))
	mux.HandleFunc("GET /api/images/{id}", s.requireAuth(s.handleGetImage))
	mux.HandleFunc("GET /api/images/{id}/content", s.requireAuth(s.handleImageContent))
	mux.HandleFunc("PUT /api/images/{id}", s.requireAuth(s.handleUpdateCaption))
	mux.HandleFunc("DELETE /api/images/{id}", s.requireAuth(s.handleDeleteImage))

	// Albums.
	mux.HandleFunc("GET /api/albums", s.requireAuth(s.handleListAlbums))
	mux.HandleFunc("POST /api/albums", s.requireAuth(s.handleCreateAlbum))
	mux.HandleFunc("GET /api/albums/{name}", s.requireAuth(s.handleGetAlbum))
	mux.HandleFunc("DELETE /api/albums/{name}", s.requireAuth(s.handleDeleteAlbum))
	mux.HandleFunc("GET /api/albums/{name}/images", s.requireAuth(s.handleListAlbumImages))
	mux.HandleFunc("POST /api/albums/{name}/images", s.requireAuth(s.handleAddAlbumImage))
	mux.HandleFunc("DELETE /api/albums/{name}/images", s.requireAuth(s.handleClearAlbum))
	mux.HandleFunc("DELETE /api/albums/{name}/images/{id}", s.requireAuth(s.handleRemoveAlbumImage))

	return mux
}
