// Package shared provides common utility functions used across multiple
// packages in the hubclean codebase.
package shared

import (
	"fmt"
	"strings"
)

// SplitList splits a comma-separated value into trimmed, non-empty
// entries, the format used by list-valued environment variables.
func SplitList(value string) []string {
	var entries []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		entries = append(entries, trimmed)
	}
	return entries
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, strings.TrimSpace(body))
}
