package domain

import "encoding/json"

// SearchResults aggregates the lookups made by the search step. Partial
// success is the normal case: every record says whether it succeeded.
type SearchResults struct {
	TwitterData    *ProfileLookup `json:"twitter_data"`
	WebsiteContent []PageFetch    `json:"website_content"`
	GoogleSearches []WebSearch    `json:"google_searches"`
}

// ProfileLookup is the outcome of a social profile scrape.
type ProfileLookup struct {
	Success bool            `json:"success"`
	Source  string          `json:"source,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PageFetch is the outcome of a generic content fetch.
type PageFetch struct {
	Success   bool   `json:"success"`
	Source    string `json:"source,omitempty"`
	Content   string `json:"content,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WebSearch is the outcome of one search engine query.
type WebSearch struct {
	Success      bool              `json:"success"`
	Query        string            `json:"query,omitempty"`
	Results      []json.RawMessage `json:"results,omitempty"`
	TotalResults int               `json:"total_results,omitempty"`
	Error        string            `json:"error,omitempty"`
}
