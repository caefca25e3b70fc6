package server

import (
	"net/http"

	"imgvault/internal/api"
	"imgvault/internal/models"
)

func (s *Server) pathAlbumName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := normalizeAlbumName(r.PathValue("name"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return name, true
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.media.ListAlbums(r.Context(), ownerID(r))
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeAlbumNotFound)
		return
	}
	if albums == nil {
		albums = []models.Album{}
	}
	s.writeJSON(w, http.StatusOK, albums)
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req api.AlbumCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	name, err := normalizeAlbumName(req.Name)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	album, err := s.media.CreateAlbum(r.Context(), ownerID(r), name, req.Description)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeAlbumNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathAlbumName(w, r)
	if !ok {
		return
	}
	album, err := s.media.GetAlbum(r.Context(), ownerID(r), name)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeAlbumNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, album)
}

// handleDeleteAlbum requires an explicit from_storage flag: true deletes
// the member images, false only detaches them.
func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathAlbumName(w, r)
	if !ok {
		return
	}
	fromStorage, err := queryBoolRequired(r, "from_storage")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := s.media.DeleteAlbum(r.Context(), ownerID(r), name, fromStorage)
	s.writeBulkResult(w, r, result, err, ErrCodeAlbumNotFound)
}

func (s *Server) handleListAlbumImages(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathAlbumName(w, r)
	if !ok {
		return
	}
	images, err := s.media.ListAlbumImages(r.Context(), ownerID(r), name)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeAlbumNotFound)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	s.writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleAddAlbumImage(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathAlbumName(w, r)
	if !ok {
		return
	}
	var req api.AlbumImageRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	ids, err := normalizeImageIDs([]string{req.ImageID})
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.media.AddToAlbum(r.Context(), ownerID(r), name, ids[0]); err != nil {
		s.writeMediaError(w, r, err, ErrCodeAlbumNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"album": name, "image_id": ids[0]})
}

func (s *Server) handleClearAlbum(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathAlbumName(w, r)
	if !ok {
		return
	}
	fromStorage, err := queryBoolRequired(r, "from_storage")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := s.media.ClearAlbum(r.Context(), ownerID(r), name, fromStorage)
	s.writeBulkResult(w, r, result, err, ErrCodeAlbumNotFound)
}

func (s *Server) handleRemoveAlbumImage(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathAlbumName(w, r)
	if !ok {
		return
	}
	id, ok := s.pathImageID(w, r)
	if !ok {
		return
	}
	if err := s.media.RemoveFromAlbum(r.Context(), ownerID(r), name, id); err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"album": name, "image_id": id})
}
