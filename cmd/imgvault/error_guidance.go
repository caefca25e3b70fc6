package main

import (
	"context"
	"errors"
	"net"

	"imgvault/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var (
		apiErr  *api.APIError
		bulkErr *api.BulkError
	)
	switch {
	case errors.As(err, &bulkErr):
		apiErr = &bulkErr.APIError
		lines = append(lines, "hint: some items were not deleted; re-run the same command to retry them.")
	case errors.As(err, &apiErr):
	}

	if apiErr != nil {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: run imgvault login and export IMGVAULT_API_TOKEN.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly; uploads and logins are rate limited.")
		case "unsupported_type":
			lines = append(lines, "hint: only jpg, png and gif images are accepted.")
		case "too_large":
			lines = append(lines, "hint: the file exceeds uploads.max_bytes on the server.")
		}
		if api.IsNotFound(err) && apiErr.Code != "" {
			lines = append(lines, "hint: ids and album names are per account; check imgvault list or imgvault album list.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify IMGVAULT_API_URL points to an imgvault server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase IMGVAULT_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an imgvault server is running at IMGVAULT_API_URL.",
			"hint: start local server manually with: imgvault srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
