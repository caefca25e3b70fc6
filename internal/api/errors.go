package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a structured error returned by the HTTP API.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Status > 0:
		return fmt.Sprintf("api error: %d", e.Status)
	default:
		return "api error"
	}
}

// BulkError is returned when the server reports a partially applied bulk
// delete. Result holds the counts of what was applied.
type BulkError struct {
	APIError
	Result BulkDeleteResponse
}

// IsNotFound reports whether err is a 404 from the API. Images and albums of
// other owners are indistinguishable from missing ones.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUploadRejected reports whether err is a validation rejection of an
// upload: a failed transfer, a size overrun or an unsupported type.
func IsUploadRejected(err error) bool {
	return hasStatus(err, http.StatusPreconditionFailed) || hasStatus(err, http.StatusUnsupportedMediaType)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	var bulkErr *BulkError
	return errors.As(err, &bulkErr) && bulkErr.Status == status
}
