package lofter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/luowst/fanarchive/app/fetch"
)

// FeedEntry is one post discovered through a blog's RSS feed.
type FeedEntry struct {
	Title   string
	PostURL string
}

// FetchAuthorFeed enumerates an author's text posts through the blog's
// RSS feed. The archive DWR endpoint only flags image posts, so the
// feed is the reliable listing for prose.
func FetchAuthorFeed(ctx context.Context, f Fetcher, log fetch.Logger, authorURL string, cookies map[string]string) ([]FeedEntry, error) {
	if !strings.HasSuffix(authorURL, "/") {
		authorURL += "/"
	}

	resp, err := f.Fetch(ctx, log, fetch.Request{
		URL:     authorURL + "rss",
		Cookies: cookies,
		Referer: authorURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch author feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse author feed: %w", err)
	}

	entries := make([]FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		entries = append(entries, FeedEntry{Title: item.Title, PostURL: item.Link})
	}
	return entries, nil
}
