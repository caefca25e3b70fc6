package server

import (
	"fmt"
	"strings"

	"imgvault/internal/models"
)

func validateImageID(id string) bool {
	return models.ValidImageID(id)
}

func normalizeImageIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, badRequestCode(fmt.Errorf("ids are required"), ErrCodeMissingRequired)
	}
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.ToLower(strings.TrimSpace(raw))
		if !validateImageID(id) {
			return nil, badRequestCode(fmt.Errorf("invalid id: %q", raw), ErrCodeInvalidID)
		}
		out = append(out, id)
	}
	return out, nil
}

func normalizeAlbumName(raw string) (string, error) {
	name, err := models.NormalizeAlbumName(raw)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidAlbumName)
	}
	return name, nil
}

func normalizeAlbumNames(values []string) ([]string, error) {
	names := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		name, err := normalizeAlbumName(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

func validateCaption(caption string) error {
	if err := models.ValidateCaption(caption); err != nil {
		return badRequestCode(err, ErrCodeInvalidCaption)
	}
	return nil
}
