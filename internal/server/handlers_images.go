package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imgvault/internal/api"
	"imgvault/internal/media"
	"imgvault/internal/models"
)

const (
	uploadFileField    = "image"
	uploadCaptionField = "caption"
	uploadAlbumField   = "album"
)

func (s *Server) pathImageID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.ToLower(strings.TrimSpace(r.PathValue("id")))
	if !validateImageID(id) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid image id"), ErrCodeInvalidID))
		return "", false
	}
	return id, true
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.media.ListImages(r.Context(), ownerID(r))
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	s.writeJSON(w, http.StatusOK, images)
}

// handleUploadImage accepts one multipart file in the "image" field plus
// optional "caption" and repeated "album" fields.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if !s.uploadLimiter.Allow(owner, time.Now()) {
		w.Header().Set("Retry-After", strconv.Itoa(s.uploadLimiter.RetryAfterSeconds()))
		s.writeErrorReq(w, r, http.StatusTooManyRequests, resourceExhausted(fmt.Errorf("upload rate limit exceeded")))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.media.MaxUploadBytes()+multipartFieldsOverhead)
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidMultipart))
			return
		}
		// The body did not arrive intact; let the validator classify it.
		_, uploadErr := s.media.Upload(r.Context(), owner, media.UploadInput{
			Meta: media.FileMeta{DeclaredSize: -1, TransportErr: classifyMultipartError(err)},
		})
		s.writeMediaError(w, r, uploadErr, ErrCodeAlbumNotFound)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadFileField)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("%s file is required", uploadFileField), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	caption := r.FormValue(uploadCaptionField)
	if err := validateCaption(caption); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	albums, err := normalizeAlbumNames(r.MultipartForm.Value[uploadAlbumField])
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	image, err := s.media.Upload(r.Context(), owner, media.UploadInput{
		Meta:    media.FileMeta{Filename: header.Filename, DeclaredSize: header.Size},
		Content: file,
		Caption: caption,
		Albums:  albums,
	})
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeAlbumNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, image)
}

func classifyMultipartError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", media.ErrContentTooLarge, maxBytesErr.Limit)
	}
	return fmt.Errorf("read multipart body: %w", err)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathImageID(w, r)
	if !ok {
		return
	}
	owner := ownerID(r)
	image, err := s.media.GetImage(r.Context(), owner, id)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	albums, err := s.media.ImageAlbums(r.Context(), owner, id)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	if albums == nil {
		albums = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.ImageResponse{Image: image, Albums: albums})
}

func (s *Server) handleImageContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathImageID(w, r)
	if !ok {
		return
	}
	image, rc, err := s.media.OpenImage(r.Context(), ownerID(r), id)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	defer rc.Close()

	h := w.Header()
	h.Set("Content-Type", image.MimeType)
	h.Set("Content-Length", strconv.FormatInt(image.SizeBytes, 10))
	h.Set("Cache-Control", "private, max-age=3600")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", image.BlobName()))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log().Warn("stream image content", "image_id", id, "error", err)
	}
}

func (s *Server) handleUpdateCaption(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathImageID(w, r)
	if !ok {
		return
	}
	var req api.CaptionUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.Caption == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("caption is required"), ErrCodeMissingRequired))
		return
	}
	if err := validateCaption(*req.Caption); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	image, err := s.media.UpdateCaption(r.Context(), ownerID(r), id, *req.Caption)
	if err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, image)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathImageID(w, r)
	if !ok {
		return
	}
	if err := s.media.DeleteImage(r.Context(), ownerID(r), id); err != nil {
		s.writeMediaError(w, r, err, ErrCodeImageNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BulkDeleteResponse{Requested: 1, Deleted: 1, Complete: true})
}

func (s *Server) handleDeleteImages(w http.ResponseWriter, r *http.Request) {
	var req api.BulkDeleteRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	ids, err := normalizeImageIDs(req.IDs)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := s.media.DeleteImages(r.Context(), ownerID(r), ids)
	s.writeBulkResult(w, r, result, err, ErrCodeImageNotFound)
}
