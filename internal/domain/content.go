// Package domain defines the core data model for the reader service.
package domain

import (
	"encoding/json"
	"time"
)

// ExtractedContent is the cleaned result of parsing one URL. Records are
// immutable once written; a newer record with the same SourceURL supersedes
// older ones, it never replaces them in place.
type ExtractedContent struct {
	SourceURL   string    `json:"sourceUrl"`
	Title       string    `json:"title,omitempty"`
	Byline      string    `json:"byline,omitempty"`
	SiteName    string    `json:"siteName,omitempty"`
	DisplayHTML string    `json:"displayHtml"`
	ModelHTML   string    `json:"modelHtml"`
	PlainText   string    `json:"plainText"`
	LeadImage   string    `json:"leadImageUrl,omitempty"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SimplifiedContent is a leveled rewrite of one ExtractedContent. The
// (SourceURL, Level) pair is the cache key. Metadata fields are copied from
// the parent extraction so the record is self-contained.
type SimplifiedContent struct {
	SourceURL      string    `json:"sourceUrl"`
	Level          Level     `json:"level"`
	SimplifiedHTML string    `json:"simplifiedHtml"`
	Title          string    `json:"title,omitempty"`
	Byline         string    `json:"byline,omitempty"`
	SiteName       string    `json:"siteName,omitempty"`
	LeadImage      string    `json:"leadImageUrl,omitempty"`
	Images         []string  `json:"images"`
	TokensUsed     int64     `json:"tokensUsed,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewsListing is a cached upstream news query result. Articles are opaque
// provider records passed through untouched.
type NewsListing struct {
	Country   string            `json:"country"`
	Language  string            `json:"language"`
	Articles  []json.RawMessage `json:"articles"`
	NextPage  string            `json:"nextPage,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
