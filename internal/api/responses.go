package api

import (
	"encoding/json"
	"time"

	"github.com/jonesrussell/reader/internal/domain"
)

// ExtractResponse is the wire shape for extraction results.
type ExtractResponse struct {
	URL          string   `json:"url"`
	Title        string   `json:"title,omitempty"`
	Byline       string   `json:"byline,omitempty"`
	SiteName     string   `json:"siteName,omitempty"`
	ContentHTML  string   `json:"contentHtml"`
	LLMHTML      string   `json:"llmHtml"`
	TextContent  string   `json:"textContent"`
	LeadImageURL string   `json:"leadImageUrl,omitempty"`
	Images       []string `json:"images"`
	Timestamp    string   `json:"timestamp"`
}

// SimplifyResponse is the wire shape for non-streaming simplification
// results.
type SimplifyResponse struct {
	OriginalURL    string   `json:"originalUrl"`
	CEFRLevel      string   `json:"cefrLevel"`
	Title          string   `json:"title,omitempty"`
	Byline         string   `json:"byline,omitempty"`
	SiteName       string   `json:"siteName,omitempty"`
	SimplifiedHTML string   `json:"simplifiedHtml"`
	LeadImageURL   string   `json:"leadImageUrl,omitempty"`
	Images         []string `json:"images"`
	Timestamp      string   `json:"timestamp"`
	TokensUsed     int64    `json:"tokensUsed,omitempty"`
}

// NewsResponse is the wire shape for news listings. Articles carry
// provider-defined fields untouched.
type NewsResponse struct {
	Results  []json.RawMessage `json:"results"`
	NextPage string            `json:"nextPage,omitempty"`
}

// StreamChunk is one line of the simplify event stream.
type StreamChunk struct {
	Content     string `json:"content"`
	Done        bool   `json:"done"`
	TotalTokens int64  `json:"totalTokens,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func newExtractResponse(content *domain.ExtractedContent) ExtractResponse {
	return ExtractResponse{
		URL:          content.SourceURL,
		Title:        content.Title,
		Byline:       content.Byline,
		SiteName:     content.SiteName,
		ContentHTML:  content.DisplayHTML,
		LLMHTML:      content.ModelHTML,
		TextContent:  content.PlainText,
		LeadImageURL: content.LeadImage,
		Images:       content.Images,
		Timestamp:    content.CreatedAt.Format(time.RFC3339),
	}
}

func newSimplifyResponse(content *domain.SimplifiedContent) SimplifyResponse {
	return SimplifyResponse{
		OriginalURL:    content.SourceURL,
		CEFRLevel:      string(content.Level),
		Title:          content.Title,
		Byline:         content.Byline,
		SiteName:       content.SiteName,
		SimplifiedHTML: content.SimplifiedHTML,
		LeadImageURL:   content.LeadImage,
		Images:         content.Images,
		Timestamp:      content.CreatedAt.Format(time.RFC3339),
		TokensUsed:     content.TokensUsed,
	}
}

func newNewsResponse(listing *domain.NewsListing) NewsResponse {
	return NewsResponse{
		Results:  listing.Articles,
		NextPage: listing.NextPage,
	}
}
