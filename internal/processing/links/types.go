package links

import "time"

// LinkRecord is the canonical record for a short code. Exactly one copy
// exists per code; the code is immutable once created.
type LinkRecord struct {
	Code      string     `json:"shortKey"`
	URL       string     `json:"url"`
	Owner     string     `json:"user"`
	CreatedAt time.Time  `json:"created"`
	Views     int64      `json:"views"`
	ExpiresAt *time.Time `json:"expiry,omitempty"`
	Password  string     `json:"password,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
}

// ClickEvent is one recorded visit. Events are append-only and only removed
// as a group when their link is deleted or tombstoned.
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Country   string    `json:"country,omitempty"`
	Device    string    `json:"device,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

type CreateLinkInput struct {
	URL        string
	CustomKey  string
	ExpiryDays int
	Password   string
	Tags       []string
	Owner      string
}

// Analytics is the lazily computed aggregation over a code's click events.
// UniqueClicks approximates distinct visitors by distinct (country, device)
// pairs; no per-visitor identifier is collected, so it is a coarse heuristic
// and intentionally stays one.
type Analytics struct {
	TotalClicks     int          `json:"totalClicks"`
	UniqueClicks    int          `json:"uniqueClicks"`
	ClicksByDate    []DateCount  `json:"clicksByDate"`
	ClicksByCountry []FieldCount `json:"clicksByCountry"`
	ClicksByDevice  []FieldCount `json:"clicksByDevice"`
	ClicksByBrowser []FieldCount `json:"clicksByBrowser"`
}

type DateCount struct {
	Date   string `json:"date"`
	Clicks int    `json:"clicks"`
}

type FieldCount struct {
	Key    string `json:"key"`
	Clicks int    `json:"clicks"`
}
