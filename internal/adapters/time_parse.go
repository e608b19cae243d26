package adapters

import (
	"strings"
	"time"
)

// parseTimeFlexible parses the timestamp formats Docker Hub has been
// observed to emit. An empty or unparseable value yields the zero time,
// which the retention rule treats as "age unknown".
func parseTimeFlexible(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
