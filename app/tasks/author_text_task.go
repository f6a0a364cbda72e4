package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/luowst/fanarchive/app/archive"
	"github.com/luowst/fanarchive/app/lofter"
)

// AuthorTextTask archives an author's prose posts, enumerated through
// the blog's RSS feed.
type AuthorTextTask struct {
	Task
}

func (t *AuthorTextTask) Execute(ctx context.Context) error {
	authorURL := strings.TrimSpace(t.Params.AuthorURL)
	if authorURL == "" {
		return fmt.Errorf("no author page link provided")
	}

	t.state.Logf("archiving articles of %s", authorURL)

	entries, err := lofter.FetchAuthorFeed(ctx, t.client, t.state, authorURL, t.lofterCookies())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		t.state.Logf("feed is empty, nothing to archive")
		return nil
	}
	t.state.Logf("feed lists %d posts", len(entries))

	saved := 0
	for i, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.state.SetProgress(i * 100 / len(entries))

		if t.skipDownloaded(entry.PostURL) {
			continue
		}

		rec, err := t.fetchLofterPost(ctx, entry.PostURL)
		if err != nil {
			t.state.Logf("post parse failed, skipping %s: %v", entry.PostURL, err)
			continue
		}
		if rec.Title == "" {
			rec.Title = entry.Title
		}
		if len(rec.BodyText) == 0 {
			t.state.Logf("no prose found in %s", entry.PostURL)
			continue
		}

		path, err := t.writer.SaveText(t.state, t.writer.TextDir("author", rec), rec)
		if err != nil {
			t.state.Logf("save failed, skipping %s: %v", entry.PostURL, err)
			continue
		}

		saved++
		t.record(archive.EntryArticle, rec, path)

		if err := t.pause(ctx); err != nil {
			return err
		}
	}

	t.state.Logf("done, %d articles archived", saved)
	return nil
}
