package lofter

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/luowst/fanarchive/app/archive"
)

var (
	reDate     = regexp.MustCompile(`\d{4}[./\\-]\d{2}[./\\-]\d{2}`)
	reImageURL = regexp.MustCompile(`"(https?://imglf\d?.lf\d*.[0-9]{0,3}.net.*?)"`)
	reBlank    = regexp.MustCompile(`\n{3,}`)
)

// bodyStrategy is one attempt at locating post prose. Strategies run in
// order; the first non-empty result wins.
type bodyStrategy func(doc *goquery.Document, rawHTML, sourceURL string) []string

var bodyStrategies = []bodyStrategy{
	contentContainerText,
	paragraphTagText,
	readabilityFallback,
}

// ExtractPost parses a single post page. viewHTML is the blog's /view
// page, used for the author display name.
func ExtractPost(rawHTML, viewHTML, sourceURL string) (*archive.PostRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	rec := &archive.PostRecord{
		SourceURL: sourceURL,
		Source:    archive.SourceLofter,
		Author:    authorFromView(viewHTML),
	}
	rec.AuthorHandle, _ = AuthorHandle(sourceURL)
	rec.Title = strings.TrimSpace(doc.Find("h2").First().Text())
	rec.PublishedDate = publishedDate(rawHTML)

	for _, strategy := range bodyStrategies {
		if body := strategy(doc, rawHTML, sourceURL); len(body) > 0 {
			rec.BodyText = body
			break
		}
	}

	rec.ImageURLs = ExtractImageURLs(rawHTML)

	return rec, nil
}

// ExtractImageURLs collects and filters the CDN image links embedded in
// a post page.
func ExtractImageURLs(rawHTML string) []string {
	var urls []string
	for _, m := range reImageURL.FindAllStringSubmatch(rawHTML, -1) {
		urls = append(urls, m[1])
	}
	return archive.FilterImageURLs(urls)
}

// AuthorName returns the display name from a blog's /view page.
func AuthorName(viewHTML string) string {
	return authorFromView(viewHTML)
}

func authorFromView(viewHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(viewHTML))
	if err != nil {
		return "unknown author"
	}
	if name := strings.TrimSpace(doc.Find("h1 a").First().Text()); name != "" {
		return name
	}
	return "unknown author"
}

// publishedDate finds the first date-looking token anywhere in the page,
// falling back to the current date.
func publishedDate(rawHTML string) time.Time {
	m := reDate.FindString(rawHTML)
	if m == "" {
		return time.Now()
	}
	normalized := strings.NewReplacer(".", "-", "/", "-", `\`, "-").Replace(m)
	t, err := dateparse.ParseAny(normalized)
	if err != nil {
		return time.Now()
	}
	return t
}

func contentContainerText(doc *goquery.Document, _, _ string) []string {
	var out []string
	doc.Find("div[class*='content']").Each(func(_ int, s *goquery.Selection) {
		for _, line := range strings.Split(s.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	})
	return out
}

func paragraphTagText(doc *goquery.Document, _, _ string) []string {
	var out []string
	doc.Find("article p, div.text p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// readabilityFallback runs the whole document through readability and
// collapses runs of 3+ blank lines to exactly one.
func readabilityFallback(_ *goquery.Document, rawHTML, sourceURL string) []string {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = nil
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err != nil || article.TextContent == "" {
		return nil
	}
	collapsed := reBlank.ReplaceAllString(article.TextContent, "\n\n")
	return splitParagraphs(collapsed)
}
