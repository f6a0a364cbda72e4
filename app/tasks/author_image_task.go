package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luowst/fanarchive/app/archive"
	"github.com/luowst/fanarchive/app/fetch"
	"github.com/luowst/fanarchive/app/lofter"
)

// AuthorImageTask walks an author's archive listing and saves every
// image post.
type AuthorImageTask struct {
	Task
}

func (t *AuthorImageTask) Execute(ctx context.Context) error {
	authorURL := strings.TrimSpace(t.Params.AuthorURL)
	if authorURL == "" {
		return fmt.Errorf("no author page link provided")
	}
	if !strings.HasSuffix(authorURL, "/") {
		authorURL += "/"
	}

	t.state.Logf("archiving images of %s", authorURL)

	view, err := t.client.Fetch(ctx, t.state, fetch.Request{
		URL:     authorURL + "view",
		Cookies: t.lofterCookies(),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch author view page: %w", err)
	}
	viewHTML := string(view.Body)

	blogID, err := lofter.BlogID(viewHTML)
	if err != nil {
		return fmt.Errorf("failed to identify author: %w", err)
	}
	author := lofter.AuthorName(viewHTML)
	handle, _ := lofter.AuthorHandle(authorURL)
	t.state.Logf("author %s[%s]", author, handle)

	strategy := lofter.NewArchiveStrategy(authorURL, blogID, t.lofterCookies())
	fragments, err := lofter.Paginate(ctx, t.client, t.state, strategy, t.authorPageCap*50)
	if err != nil {
		return err
	}
	t.state.Logf("archive listing: %d posts", len(fragments))

	var items []lofter.ArchiveItem
	for _, f := range fragments {
		if item, ok := strategy.ParseArchiveItem(f); ok && item.HasImage {
			items = append(items, item)
		}
	}
	t.state.Logf("%d image posts found", len(items))

	saved := 0
	for i, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.state.SetProgress(30 + i*70/len(items))

		if t.skipDownloaded(item.PostURL) {
			continue
		}

		raw, err := t.client.Fetch(ctx, t.state, fetch.Request{
			URL:     item.PostURL,
			Cookies: t.lofterCookies(),
			Referer: authorURL,
		})
		if err != nil {
			t.state.Logf("post fetch failed, skipping %s: %v", item.PostURL, err)
			continue
		}

		rec := &archive.PostRecord{
			SourceURL:     item.PostURL,
			Source:        archive.SourceLofter,
			Author:        author,
			AuthorHandle:  handle,
			PublishedDate: time.UnixMilli(item.TimeMS),
			ImageURLs:     lofter.ExtractImageURLs(string(raw.Body)),
		}
		if !rec.HasImages() {
			continue
		}

		dir := t.writer.ImageDir("author", rec)
		n, err := t.writer.SaveImages(ctx, t.client, t.state, dir, rec)
		if err != nil {
			return err
		}
		if n > 0 {
			saved += n
			t.record(archive.EntryImage, rec, dir)
		}

		if err := t.pause(ctx); err != nil {
			return err
		}
	}

	t.state.Logf("done, %d images archived", saved)
	return nil
}
