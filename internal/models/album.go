package models

import "time"

// Album is a named image collection, unique per owner.
type Album struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	OwnerID     string    `json:"owner_id" yaml:"owner_id"`
	ImageCount  int       `json:"image_count" yaml:"image_count"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// AlbumMembership links an image into an album of the same owner.
type AlbumMembership struct {
	AlbumName string    `json:"album_name" yaml:"album_name"`
	OwnerID   string    `json:"owner_id" yaml:"owner_id"`
	ImageID   string    `json:"image_id" yaml:"image_id"`
	AddedAt   time.Time `json:"added_at" yaml:"added_at"`
}
