package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"imgvault/internal/api"
	"imgvault/internal/media"
)

const (
	defaultJSONMaxBody = 1 << 20 // 1 MiB
	bulkJSONMaxBody    = 4 << 20 // 4 MiB
)

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	class := classify(status, err)

	attrs := []any{"status", status, "code", class.code, "error_code", class.errCode, "error", err}
	if r != nil {
		attrs = append(attrs, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}
	message := err.Error()
	switch {
	case status >= 500:
		s.log().Error("request error", attrs...)
		message = "internal error"
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		s.log().Warn("request rejected", attrs...)
	case status >= 400:
		s.log().Debug("request rejected", attrs...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: class.code, ErrorCode: class.errCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// apiError pins an HTTP status and both error codes to an underlying error.
// The first apiError in a chain wins.
type apiError struct {
	status int
	errorClass
	err error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error { return e.err }

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	if existing, ok := asAPIError(err); ok {
		return existing
	}
	return apiError{status: status, errorClass: errorClass{code: code, errCode: errCode}, err: err}
}

func asAPIError(err error) (apiError, bool) {
	var e apiError
	if errors.As(err, &e) && e.status != 0 {
		return e, true
	}
	return apiError{}, false
}

// classify fills whatever the error leaves unset from the status defaults.
func classify(status int, err error) errorClass {
	class := statusClasses[status]
	if e, ok := asAPIError(err); ok {
		if e.code != "" {
			class.code = e.code
		}
		if e.errCode > 0 {
			class.errCode = e.errCode
		}
	}
	return class
}

func httpStatusFromError(err error) int {
	if e, ok := asAPIError(err); ok {
		return e.status
	}
	return http.StatusInternalServerError
}

func badRequest(err error) error { return badRequestCode(err, ErrCodeInvalidArgument) }

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

func resourceExhausted(err error) error {
	return makeAPIError(http.StatusTooManyRequests, "resource_exhausted", ErrCodeResourceExhausted, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, err)
}

// mediaError maps a media service error onto the HTTP surface. notFound
// selects the numeric code used for ErrNotFound on this route.
func mediaError(err error, notFound int) error {
	if existing, ok := asAPIError(err); ok {
		return existing
	}

	if reason, ok := media.RejectionReason(err); ok {
		switch reason {
		case media.ReasonUnsupportedType:
			return makeAPIError(http.StatusUnsupportedMediaType, "unsupported_type", ErrCodeUnsupportedType, err)
		case media.ReasonTooLarge:
			return makeAPIError(http.StatusPreconditionFailed, "too_large", ErrCodeUploadTooLarge, err)
		default:
			return makeAPIError(http.StatusPreconditionFailed, "transport_error", ErrCodeUploadTransport, err)
		}
	}

	var conflict *media.ConflictError
	switch {
	case errors.Is(err, media.ErrNotFound):
		return makeAPIError(http.StatusNotFound, "not_found", notFound, err)
	case errors.Is(err, media.ErrInvalidInput):
		return badRequest(err)
	case errors.Is(err, media.ErrAlbumExists):
		return conflictCode(err, ErrCodeAlbumExists)
	case errors.As(err, &conflict):
		return conflictCode(err, ErrCodeConflict)
	case errors.Is(err, media.ErrBulkIncomplete):
		return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeBulkIncomplete, err)
	}
	return storeFailure(err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := defaultJSONMaxBody
	if r.URL.Path == "/api/images/delete" {
		maxBytes = bulkJSONMaxBody
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))
	return json.NewDecoder(r.Body).Decode(dst)
}

func classifyDecodeJSONError(err error) error {
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return badRequestCode(fmt.Errorf("invalid JSON payload"), ErrCodeInvalidJSON)
	}

	return badRequestCode(err, ErrCodeInvalidJSON)
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

// writeMediaError maps and writes a media service error.
func (s *Server) writeMediaError(w http.ResponseWriter, r *http.Request, err error, notFound int) {
	s.writeServiceError(w, r, mediaError(err, notFound))
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
}

// writeBulkResult writes the counts of a bulk delete. A partial failure is
// a 500 that still carries the counts.
func (s *Server) writeBulkResult(w http.ResponseWriter, r *http.Request, result media.BulkResult, err error, notFound int) {
	resp := bulkResponse(result)
	if err == nil {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}
	if !errors.Is(err, media.ErrBulkIncomplete) {
		s.writeMediaError(w, r, err, notFound)
		return
	}

	class := classify(http.StatusInternalServerError, mediaError(err, notFound))
	s.log().Error("bulk delete incomplete",
		"method", r.Method,
		"path", r.URL.Path,
		"requested", result.Requested,
		"deleted", result.Deleted,
		"failed", result.Failed,
		"error", err,
	)
	s.writeJSON(w, http.StatusInternalServerError, api.BulkErrorResponse{
		ErrorResponse: api.ErrorResponse{Error: "internal error", Code: class.code, ErrorCode: class.errCode},
		Result:        resp,
	})
}

func bulkResponse(result media.BulkResult) api.BulkDeleteResponse {
	return api.BulkDeleteResponse{
		Requested: result.Requested,
		Deleted:   result.Deleted,
		Missing:   result.Missing,
		Failed:    result.Failed,
		Detached:  result.Detached,
		Complete:  result.OK(),
	}
}

// queryBoolRequired parses a boolean query parameter that must be present.
func queryBoolRequired(r *http.Request, key string) (bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return false, badRequestCode(fmt.Errorf("%s is required", key), ErrCodeMissingRequired)
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, badRequestCode(fmt.Errorf("invalid %s", key), ErrCodeInvalidQuery)
	}
	return parsed, nil
}
