package api

import (
	"time"

	"imgvault/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a session token.
type LoginResponse struct {
	Token     string      `json:"token" yaml:"token"`
	ExpiresAt time.Time   `json:"expires_at" yaml:"expires_at"`
	User      models.User `json:"user" yaml:"user"`
}

// ImageResponse is an image with the owned albums it belongs to.
type ImageResponse struct {
	models.Image `yaml:",inline"`
	Albums []string `json:"albums" yaml:"albums"`
}

// CaptionUpdateRequest replaces an image caption.
type CaptionUpdateRequest struct {
	Caption *string `json:"caption"`
}

// AlbumCreateRequest creates an album.
type AlbumCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AlbumImageRequest attaches an image to an album.
type AlbumImageRequest struct {
	ImageID string `json:"image_id"`
}

// BulkDeleteRequest lists image ids to delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResponse summarizes a bulk or cascading delete.
type BulkDeleteResponse struct {
	Requested int  `json:"requested" yaml:"requested"`
	Deleted   int  `json:"deleted" yaml:"deleted"`
	Missing   int  `json:"missing" yaml:"missing"`
	Failed    int  `json:"failed" yaml:"failed"`
	Detached  int  `json:"detached" yaml:"detached"`
	Complete  bool `json:"complete" yaml:"complete"`
}

// BulkErrorResponse is returned when a bulk delete leaves failed items.
type BulkErrorResponse struct {
	ErrorResponse
	Result BulkDeleteResponse `json:"result"`
}
