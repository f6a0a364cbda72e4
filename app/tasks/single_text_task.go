package tasks

import (
	"context"
	"fmt"

	"github.com/luowst/fanarchive/app/archive"
)

// SingleTextTask archives the prose of individual post URLs.
type SingleTextTask struct {
	Task
}

func (t *SingleTextTask) Execute(ctx context.Context) error {
	urls := cleanURLs(t.Params.URLs)
	if len(urls) == 0 {
		return fmt.Errorf("no post links provided")
	}

	t.state.Logf("archiving text from %d posts", len(urls))
	saved := 0

	for i, u := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.state.SetProgress(i * 100 / len(urls))

		if t.skipDownloaded(u) {
			continue
		}

		rec, err := t.fetchLofterPost(ctx, u)
		if err != nil {
			t.state.Logf("post parse failed, skipping %s: %v", u, err)
			continue
		}
		if len(rec.BodyText) == 0 {
			t.state.Logf("no prose found in %s", u)
			continue
		}

		path, err := t.writer.SaveText(t.state, t.writer.TextDir("single", rec), rec)
		if err != nil {
			t.state.Logf("save failed, skipping %s: %v", u, err)
			continue
		}

		saved++
		t.state.Logf("saved %s", path)
		t.record(archive.EntryArticle, rec, path)

		if err := t.pause(ctx); err != nil {
			return err
		}
	}

	t.state.Logf("done, %d articles archived", saved)
	return nil
}
