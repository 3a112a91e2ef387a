// Package session implements the Session Log & Progress Events component
// (C8): a session id per run, an append-only NDJSON event stream written
// to the workspace, and monotonic/deduplicated progress tracking.
package session

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a time + random session id: an ISO-ish timestamp
// prefix plus an 8-character UUID suffix, satisfying §4.8's "time +
// random" requirement with what the dependency graph actually carries
// (the teacher only uses plain uuid.New(), no time-sortable UUIDv7
// variant).
func NewID(now time.Time) string {
	return now.UTC().Format("20060102T150405Z") + "-" + uuid.New().String()[:8]
}
