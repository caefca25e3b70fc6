package models

import "time"

// Image is the metadata record of one stored image blob.
type Image struct {
	ID         string    `json:"id" yaml:"id"`
	Extension  Extension `json:"extension" yaml:"extension"`
	Caption    string    `json:"caption,omitempty" yaml:"caption,omitempty"`
	MimeType   string    `json:"mime_type" yaml:"mime_type"`
	SizeBytes  int64     `json:"size_bytes" yaml:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
	OwnerID    string    `json:"owner_id" yaml:"owner_id"`
}

// BlobName returns the file name the blob store keeps the image under.
func (i Image) BlobName() string {
	return i.ID + "." + string(i.Extension)
}

// ImageRef is the minimal id/extension pair used by maintenance sweeps.
type ImageRef struct {
	ID        string
	Extension Extension
	OwnerID   string
}
