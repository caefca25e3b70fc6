package blobstore

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	blobIDPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
	blobExtPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)
)

// objectName validates id/ext and returns the flat blob name.
func objectName(id, ext string) (string, error) {
	id = strings.TrimSpace(id)
	ext = strings.TrimSpace(ext)
	if !blobIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid blob id %q", id)
	}
	if !blobExtPattern.MatchString(ext) {
		return "", fmt.Errorf("invalid blob extension %q", ext)
	}
	return id + "." + ext, nil
}

// splitName parses a stored blob name back into id and extension.
func splitName(name string) (string, string, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	id, ext := name[:idx], name[idx+1:]
	if !blobIDPattern.MatchString(id) || !blobExtPattern.MatchString(ext) {
		return "", "", false
	}
	return id, ext, true
}
