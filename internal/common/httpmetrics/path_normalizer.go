package httpmetrics

import (
	"regexp"
	"strings"
)

var (
	uuidRegex = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	hexRegex  = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// adminRealtimePrefix carries a free-form channel name; it is collapsed so
// label cardinality stays bounded.
const adminRealtimePrefix = "/api/admin/realtime/"

func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	if strings.HasPrefix(path, adminRealtimePrefix) {
		rest := strings.Trim(strings.TrimPrefix(path, adminRealtimePrefix), "/")
		if idx := strings.LastIndex(rest, "/"); idx != -1 {
			return adminRealtimePrefix + "{channel}" + rest[idx:]
		}
		return adminRealtimePrefix + "{channel}"
	}

	normalized := uuidRegex.ReplaceAllString(path, "{id}")

	parts := strings.Split(normalized, "/")
	for i, part := range parts {
		if part != "" && (strings.HasPrefix(part, "{") || isNumeric(part) || hexRegex.MatchString(part)) {
			parts[i] = "{param}"
		}
	}

	result := strings.Join(parts, "/")
	if result == "" {
		return "/"
	}

	return result
}

func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
