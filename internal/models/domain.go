package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Extension is a stored image file extension.
type Extension string

const (
	ExtJPG Extension = "jpg"
	ExtPNG Extension = "png"
	ExtGIF Extension = "gif"
)

const (
	// DefaultMaxUploadBytes is the default upload size ceiling.
	DefaultMaxUploadBytes int64 = 1_000_000
	// MaxCaptionLength bounds caption text.
	MaxCaptionLength = 1024
	// MaxAlbumNameLength bounds album names.
	MaxAlbumNameLength = 128
)

var mediaTypeByExtension = map[Extension]string{
	ExtJPG: "image/jpeg",
	ExtPNG: "image/png",
	ExtGIF: "image/gif",
}

var extensionByMediaType = map[string]Extension{
	"image/jpeg": ExtJPG,
	"image/png":  ExtPNG,
	"image/gif":  ExtGIF,
}

// AllExtensions returns the full allow-list in stable order.
func AllExtensions() []Extension {
	return []Extension{ExtJPG, ExtPNG, ExtGIF}
}

// ParseExtension validates an extension name. "jpeg" is accepted as jpg.
func ParseExtension(raw string) (Extension, error) {
	value := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
	if value == "" {
		return "", fmt.Errorf("extension is required")
	}
	if value == "jpeg" {
		value = string(ExtJPG)
	}
	ext := Extension(value)
	if _, ok := mediaTypeByExtension[ext]; !ok {
		return "", fmt.Errorf("invalid extension: %s", value)
	}
	return ext, nil
}

// MediaType returns the MIME type for the extension.
func (e Extension) MediaType() string {
	return mediaTypeByExtension[e]
}

// ExtensionForMediaType maps an allowed MIME type to its extension.
func ExtensionForMediaType(mediaType string) (Extension, bool) {
	ext, ok := extensionByMediaType[strings.ToLower(strings.TrimSpace(mediaType))]
	return ext, ok
}

// NormalizeAlbumName trims an album name and checks its length.
func NormalizeAlbumName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("album name is required")
	}
	if len(name) > MaxAlbumNameLength {
		return "", fmt.Errorf("album name exceeds %d characters", MaxAlbumNameLength)
	}
	if strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("album name must not contain slashes")
	}
	return name, nil
}

// ValidateCaption checks caption length.
func ValidateCaption(caption string) error {
	if len(caption) > MaxCaptionLength {
		return fmt.Errorf("caption exceeds %d characters", MaxCaptionLength)
	}
	return nil
}

// ValidImageID reports whether id is a canonical lowercase UUID, the only
// form image ids are generated in.
func ValidImageID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
