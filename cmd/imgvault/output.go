package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"imgvault/internal/api"
	"imgvault/internal/format"
	"imgvault/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

// writeJSON writes payload with the selected structured formatter.
func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeImageList(images []models.Image) error {
	if len(images) == 0 {
		return writePlain("no images\n")
	}
	for _, image := range images {
		if err := writePlain("%s\n", formatImageLine(image)); err != nil {
			return err
		}
	}
	return nil
}

func writeImageDetail(image api.ImageResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", image.ID),
		fmt.Sprintf("type: %s", image.MimeType),
		fmt.Sprintf("size: %s", formatBytes(image.SizeBytes)),
		fmt.Sprintf("uploaded_at: %s", formatTime(image.UploadedAt)),
	}
	if image.Caption != "" {
		lines = append(lines, fmt.Sprintf("caption: %s", image.Caption))
	}
	if len(image.Albums) > 0 {
		lines = append(lines, fmt.Sprintf("albums: %s", strings.Join(image.Albums, ", ")))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeAlbumList(albums []models.Album) error {
	if len(albums) == 0 {
		return writePlain("no albums\n")
	}
	for _, album := range albums {
		if err := writePlain("%s\n", formatAlbumLine(album)); err != nil {
			return err
		}
	}
	return nil
}

func writeBulkResult(action string, result api.BulkDeleteResponse) error {
	parts := []string{fmt.Sprintf("%d deleted", result.Deleted)}
	if result.Missing > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", result.Missing))
	}
	if result.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", result.Failed))
	}
	if result.Detached > 0 {
		parts = append(parts, fmt.Sprintf("%d detached", result.Detached))
	}
	return writePlain("%s: %s\n", action, strings.Join(parts, ", "))
}

func formatImageLine(image models.Image) string {
	line := fmt.Sprintf("%s  %-4s %8s  %s", image.ID, image.Extension, formatBytes(image.SizeBytes), formatTime(image.UploadedAt))
	if image.Caption != "" {
		line += "  " + image.Caption
	}
	return line
}

func formatAlbumLine(album models.Album) string {
	line := fmt.Sprintf("%s (%d)", album.Name, album.ImageCount)
	if album.Description != "" {
		line += " - " + album.Description
	}
	return line
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
