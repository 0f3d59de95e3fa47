package tasks

import (
	"strings"
	"time"
)

// fields a task list may be ordered by
var sortFields = map[string]bool{
	"title":    true,
	"deadline": true,
	"priority": true,
}

// ValidDeadline reports whether t lies strictly in the future. Checked
// once at validation time; a stored deadline may lawfully become past.
func ValidDeadline(t, now time.Time) bool {
	return t.After(now)
}

// ValidSortKey accepts a sortable field name, optionally prefixed with
// "-" for descending order.
func ValidSortKey(key string) bool {
	return sortFields[strings.TrimPrefix(key, "-")]
}
