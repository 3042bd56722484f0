// Package inventory persists the outcome of every subnet sweep so runs can
// be compared over time.
package inventory

import (
	"errors"
	"time"
)

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit     int    // Max results per page (default 50, max 1000).
	Offset    int    // Number of results to skip.
	SortOrder string // "asc" or "desc" (default "desc").
}

// ListResult wraps a paginated result set with a total count.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SweepRecord is one persisted subnet sweep.
type SweepRecord struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Interface string        `json:"interface"`
	Subnet    string        `json:"subnet"`
	Usable    uint64        `json:"usable"`
	Online    []string      `json:"online"`
	Skipped   bool          `json:"skipped"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// normalizeListOptions applies defaults and caps to list options.
func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.SortOrder != "asc" {
		opts.SortOrder = "desc"
	}
	return opts
}
