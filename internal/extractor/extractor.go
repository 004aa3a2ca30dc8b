// Package extractor turns raw article HTML into cleaned, position-preserving
// content: a readability pass isolates the main article subtree, then image
// URLs are normalized to absolute form and two HTML variants are produced,
// one for display and a stripped one sized for model consumption.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
)

// lazySrcAttrs are fallback attributes used by lazy-loading sites when the
// real image URL is not in src.
var lazySrcAttrs = []string{"data-src", "data-lazy-src", "data-original"}

// metaImageSelectors locate the page-level preview image, in priority order.
var metaImageSelectors = []string{
	"meta[property='og:image']",
	"meta[name='og:image']",
	"meta[name='twitter:image']",
	"meta[property='twitter:image']",
}

// Extractor produces ExtractedContent from raw page HTML.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses rawHTML rooted at pageURL and returns the cleaned content.
// Returns an extraction-kinded error when no main content subtree can be
// identified; that is a reportable condition, not a crash.
func (e *Extractor) Extract(rawHTML, pageURL string) (*domain.ExtractedContent, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(errors.KindValidation, "invalid source url", err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return nil, errors.Wrap(errors.KindExtraction, "readability parse failed", err)
	}
	if strings.TrimSpace(article.Content) == "" || strings.TrimSpace(article.TextContent) == "" {
		return nil, errors.New(errors.KindExtraction, "no main content identified")
	}

	fragment, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, errors.Wrap(errors.KindExtraction, "parse article fragment", err)
	}

	images := newImageSet()
	normalizeImages(fragment, base, images)

	leadImage := findLeadImage(rawHTML, fragment, base)
	if leadImage != "" {
		images.add(leadImage)
	}

	displayHTML, err := serializeFragment(fragment)
	if err != nil {
		return nil, errors.Wrap(errors.KindExtraction, "serialize article fragment", err)
	}

	modelHTML, err := deriveModelHTML(displayHTML)
	if err != nil {
		return nil, errors.Wrap(errors.KindExtraction, "derive model html", err)
	}

	return &domain.ExtractedContent{
		SourceURL:   pageURL,
		Title:       strings.TrimSpace(article.Title),
		Byline:      strings.TrimSpace(article.Byline),
		SiteName:    strings.TrimSpace(article.SiteName),
		DisplayHTML: displayHTML,
		ModelHTML:   modelHTML,
		PlainText:   strings.TrimSpace(article.TextContent),
		LeadImage:   leadImage,
		Images:      images.values(),
	}, nil
}

// normalizeImages rewrites every image in the fragment to an absolute URL and
// records the resolved URLs. A URL that fails to resolve is left as-is rather
// than dropping the image.
func normalizeImages(fragment *goquery.Document, base *url.URL, images *imageSet) {
	fragment.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if strings.TrimSpace(src) == "" {
			for _, attr := range lazySrcAttrs {
				if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
					src = v
					break
				}
			}
		}

		if strings.TrimSpace(src) != "" {
			resolved := resolveURL(base, src)
			img.SetAttr("src", resolved)
			images.add(resolved)
		}

		if srcset, ok := img.Attr("srcset"); ok && strings.TrimSpace(srcset) != "" {
			img.SetAttr("srcset", resolveSrcset(base, srcset, images))
		}
	})
}

// resolveSrcset resolves each candidate URL in a srcset value, preserving
// the size descriptors.
func resolveSrcset(base *url.URL, srcset string, images *imageSet) string {
	candidates := strings.Split(srcset, ",")
	resolved := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) == 0 {
			continue
		}
		fields[0] = resolveURL(base, fields[0])
		images.add(fields[0])
		resolved = append(resolved, strings.Join(fields, " "))
	}
	return strings.Join(resolved, ", ")
}

// resolveURL resolves raw against base. Resolution failures fall back to the
// original string unchanged.
func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

// findLeadImage picks the representative image: Open Graph / Twitter meta
// image first, then the first image inside the article fragment.
func findLeadImage(rawHTML string, fragment *goquery.Document, base *url.URL) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML)); err == nil {
		for _, selector := range metaImageSelectors {
			if content, ok := doc.Find(selector).First().Attr("content"); ok {
				if content = strings.TrimSpace(content); content != "" {
					return resolveURL(base, content)
				}
			}
		}
	}

	if src, ok := fragment.Find("img").First().Attr("src"); ok {
		if src = strings.TrimSpace(src); src != "" {
			return resolveURL(base, src)
		}
	}

	return ""
}

// serializeFragment renders the fragment's body children back to HTML.
// goquery wraps parsed fragments in a full html/body skeleton.
func serializeFragment(fragment *goquery.Document) (string, error) {
	htmlStr, err := fragment.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return strings.TrimSpace(htmlStr), nil
}

// modelKeptAttrs maps element names to the attributes that survive stripping.
var modelKeptAttrs = map[string][]string{
	"img": {"src", "alt"},
	"a":   {"href"},
}

// deriveModelHTML produces the token-efficient variant: script/style/
// noscript/iframe removed, every attribute stripped except img src+alt and
// a href. Image placement must remain visible to the model.
func deriveModelHTML(displayHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(displayHTML))
	if err != nil {
		return "", fmt.Errorf("parse display html: %w", err)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			stripAttrs(node)
		}
	})

	return serializeFragment(doc)
}

// stripAttrs removes all attributes from a node except the kept set for its
// element name.
func stripAttrs(node *html.Node) {
	if node.Type != html.ElementNode || len(node.Attr) == 0 {
		return
	}

	kept := modelKeptAttrs[node.Data]
	if len(kept) == 0 {
		node.Attr = nil
		return
	}

	filtered := node.Attr[:0]
	for _, attr := range node.Attr {
		for _, name := range kept {
			if attr.Key == name {
				filtered = append(filtered, attr)
				break
			}
		}
	}
	node.Attr = filtered
}

// imageSet collects absolute image URLs, de-duplicated, preserving first
// insertion order.
type imageSet struct {
	seen map[string]struct{}
	urls []string
}

func newImageSet() *imageSet {
	return &imageSet{seen: make(map[string]struct{})}
}

func (s *imageSet) add(u string) {
	if u == "" {
		return
	}
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
}

func (s *imageSet) values() []string {
	if s.urls == nil {
		return []string{}
	}
	return s.urls
}
