package tasks

import (
	"context"
	"fmt"

	"github.com/luowst/fanarchive/app/archive"
)

// SingleImageTask archives the images of individual post URLs.
type SingleImageTask struct {
	Task
}

func (t *SingleImageTask) Execute(ctx context.Context) error {
	urls := cleanURLs(t.Params.URLs)
	if len(urls) == 0 {
		return fmt.Errorf("no post links provided")
	}

	t.state.Logf("archiving images from %d posts", len(urls))

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
		if !rec.HasImages() {
			t.state.Logf("no images found in %s", u)
			continue
		}

		dir := t.writer.ImageDir("single", rec)
		saved, err := t.writer.SaveImages(ctx, t.client, t.state, dir, rec)
		if err != nil {
			return err
		}

		t.state.Logf("saved %d of %d images from %s", saved, len(rec.ImageURLs), u)
		if saved > 0 {
			t.record(archive.EntryImage, rec, dir)
		}

		if err := t.pause(ctx); err != nil {
			return err
		}
	}

	return nil
}
