package ao3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/luowst/fanarchive/app/fetch"
)

// Fetcher is the slice of the HTTP client the listing walkers need.
type Fetcher interface {
	Fetch(ctx context.Context, log fetch.Logger, r fetch.Request) (*fetch.Response, error)
}

// URLKind classifies a user-supplied AO3 link.
type URLKind string

const (
	KindWork    URLKind = "work"
	KindSeries  URLKind = "series"
	KindAuthor  URLKind = "author"
	KindTag     URLKind = "tag"
	KindUnknown URLKind = "unknown"
)

// ClassifyURL picks the scraping strategy for one input URL.
func ClassifyURL(u string) URLKind {
	switch {
	case strings.Contains(u, "/series/"):
		return KindSeries
	case strings.Contains(u, "/users/") && strings.Contains(u, "/works"):
		return KindAuthor
	case strings.Contains(u, "/tags/") && strings.Contains(u, "/works"):
		return KindTag
	case strings.Contains(u, "/works/"):
		return KindWork
	default:
		return KindUnknown
	}
}

// ParseWorkLinks pulls the work URLs out of one listing page, in page
// order.
func ParseWorkLinks(rawHTML string) ([]string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var links []string
	doc.Find("ol.work h4.heading, ul.series h4.heading").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || !strings.Contains(href, "/works/") {
			return
		}
		links = append(links, BaseURL+href)
	})

	hasNext := doc.Find("li.next a").Length() > 0
	return links, hasNext, nil
}

// WorksFromSeries collects all work URLs of a series page.
func WorksFromSeries(ctx context.Context, f Fetcher, log fetch.Logger, seriesURL string) ([]string, error) {
	resp, err := f.Fetch(ctx, log, fetch.Request{URL: seriesURL, Cookies: SessionCookies()})
	if err != nil {
		return nil, err
	}
	links, _, err := ParseWorkLinks(string(resp.Body))
	return links, err
}

// WorksFromListing walks a paged author or tag listing with a
// page-number cursor, continuing while a next-page link is present.
// pageCap bounds the walk; hitting it logs a warning but is not an
// error.
func WorksFromListing(ctx context.Context, f Fetcher, log fetch.Logger, listURL string, pageCap int) ([]string, error) {
	var all []string

	for page := 1; ; page++ {
		pageURL := fmt.Sprintf("%s?page=%d", listURL, page)
		if strings.Contains(listURL, "?") {
			pageURL = fmt.Sprintf("%s&page=%d", listURL, page)
		}

		resp, err := f.Fetch(ctx, log, fetch.Request{URL: pageURL, Cookies: SessionCookies()})
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			log.Logf("listing page %d failed, stopping: %v", page, err)
			return all, nil
		}

		links, hasNext, err := ParseWorkLinks(string(resp.Body))
		if err != nil {
			return all, err
		}
		if len(links) == 0 {
			return all, nil
		}

		all = append(all, links...)
		log.Logf("listing page %d: %d works", page, len(links))

		if !hasNext {
			return all, nil
		}
		if pageCap > 0 && page >= pageCap {
			log.Logf("page cap of %d reached, stopping enumeration", pageCap)
			return all, nil
		}

		if err := sleepCtx(ctx, time.Second); err != nil {
			return all, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dedup removes repeated URLs preserving first-seen order.
func Dedup(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
