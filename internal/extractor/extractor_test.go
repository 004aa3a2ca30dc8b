package extractor

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/reader/internal/errors"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
<title>Council Approves New Transit Plan</title>
<meta property="og:image" content="/images/lead.jpg">
<meta property="og:site_name" content="Example News">
</head>
<body>
<nav><a href="/home">Home</a><a href="/sports">Sports</a></nav>
<article>
<h1>Council Approves New Transit Plan</h1>
<p class="byline">By Jane Example</p>
<p>The city council voted on Tuesday evening to approve a sweeping new transit
plan that will reshape how residents move through the downtown core over the
next decade, committing significant funding to new rapid bus corridors.</p>
<p>Supporters of the plan argued that the investment was long overdue, pointing
to years of rising congestion and unreliable service on the busiest routes.
Opponents questioned the cost and raised concerns about construction impacts
on small businesses along the affected streets.</p>
<p><img src="/pic.jpg" alt="Buses lined up at the new terminal"></p>
<p>Construction on the first corridor is expected to begin next spring, with
the full network scheduled to open in phases over the following five years.
City staff said detailed designs would be published for public comment before
any street work begins, and that a dedicated office would handle complaints.</p>
<p>The vote passed by a wide margin after hours of public delegations, with
several councillors describing it as the most significant infrastructure
decision of the current term. Funding details go to the budget committee
<a href="/budget/2027">next month</a> for final sign-off.</p>
</article>
<footer>Contact us</footer>
<script src="/analytics.js"></script>
</body>
</html>`

func TestExtractProducesCleanContent(t *testing.T) {
	content, err := New().Extract(articlePage, "https://example.com/news/transit-plan")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/news/transit-plan", content.SourceURL)
	assert.Equal(t, "Council Approves New Transit Plan", content.Title)
	assert.Contains(t, content.PlainText, "voted on Tuesday evening")
	assert.NotContains(t, content.DisplayHTML, "<script")
	assert.True(t, content.CreatedAt.IsZero(), "timestamps are stamped by the service, not the extractor")
}

func TestExtractNormalizesImageURLs(t *testing.T) {
	content, err := New().Extract(articlePage, "https://example.com/news/transit-plan")
	require.NoError(t, err)

	assert.Contains(t, content.DisplayHTML, `src="https://example.com/pic.jpg"`)
	assert.Contains(t, content.Images, "https://example.com/pic.jpg")
	for _, img := range content.Images {
		assert.True(t, strings.HasPrefix(img, "https://"), "image %q should be absolute", img)
	}
}

func TestExtractLeadImagePrefersOpenGraph(t *testing.T) {
	content, err := New().Extract(articlePage, "https://example.com/news/transit-plan")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/images/lead.jpg", content.LeadImage)
	assert.Contains(t, content.Images, "https://example.com/images/lead.jpg")
}

func TestExtractLeadImageFallsBackToFirstContentImage(t *testing.T) {
	page := strings.Replace(articlePage, `<meta property="og:image" content="/images/lead.jpg">`, "", 1)

	content, err := New().Extract(page, "https://example.com/news/transit-plan")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/pic.jpg", content.LeadImage)
}

func TestExtractModelHTMLStripsNoise(t *testing.T) {
	content, err := New().Extract(articlePage, "https://example.com/news/transit-plan")
	require.NoError(t, err)

	assert.NotContains(t, content.ModelHTML, "<script")
	assert.NotContains(t, content.ModelHTML, "class=")
	assert.NotContains(t, content.ModelHTML, "id=")
	assert.Contains(t, content.ModelHTML, `src="https://example.com/pic.jpg"`)
	assert.Contains(t, content.ModelHTML, `alt="Buses lined up at the new terminal"`)
	assert.Contains(t, content.ModelHTML, "voted on Tuesday evening")
}

func TestExtractNoMainContent(t *testing.T) {
	_, err := New().Extract("<html><body></body></html>", "https://example.com/empty")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindExtraction), "expected extraction error, got %v", err)
}

func TestExtractInvalidSourceURL(t *testing.T) {
	_, err := New().Extract(articlePage, "http://example.com/%zz")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation), "expected validation error, got %v", err)
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/news/story")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"absolute unchanged", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"root relative", "/images/a.jpg", "https://example.com/images/a.jpg"},
		{"document relative", "a.jpg", "https://example.com/news/a.jpg"},
		{"protocol relative", "//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"surrounding whitespace", "  /b.jpg ", "https://example.com/b.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveURL(base, tt.input))
		})
	}
}

func TestResolveSrcsetPreservesDescriptors(t *testing.T) {
	base, _ := url.Parse("https://example.com/news/story")
	images := newImageSet()

	resolved := resolveSrcset(base, "/small.jpg 480w, /large.jpg 2x", images)

	assert.Equal(t, "https://example.com/small.jpg 480w, https://example.com/large.jpg 2x", resolved)
	assert.Equal(t, []string{"https://example.com/small.jpg", "https://example.com/large.jpg"}, images.values())
}

func TestNormalizeImagesUsesLazyLoadFallbacks(t *testing.T) {
	base, _ := url.Parse("https://example.com/news/story")

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"data-src", `<p><img data-src="/lazy.jpg"></p>`, "https://example.com/lazy.jpg"},
		{"data-lazy-src", `<p><img src="" data-lazy-src="/lazy2.jpg"></p>`, "https://example.com/lazy2.jpg"},
		{"data-original", `<p><img data-original="/lazy3.jpg"></p>`, "https://example.com/lazy3.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragment, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			require.NoError(t, err)

			images := newImageSet()
			normalizeImages(fragment, base, images)

			src, ok := fragment.Find("img").First().Attr("src")
			require.True(t, ok)
			assert.Equal(t, tt.expected, src)
			assert.Equal(t, []string{tt.expected}, images.values())
		})
	}
}

func TestImageSetDeduplicatesPreservingOrder(t *testing.T) {
	set := newImageSet()
	set.add("https://example.com/a.jpg")
	set.add("https://example.com/b.jpg")
	set.add("https://example.com/a.jpg")
	set.add("")

	assert.Equal(t, []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}, set.values())
}

func TestImageSetEmptyIsNotNil(t *testing.T) {
	assert.NotNil(t, newImageSet().values())
	assert.Empty(t, newImageSet().values())
}
