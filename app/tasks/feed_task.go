package tasks

import (
	"context"
	"fmt"

	"github.com/luowst/fanarchive/app/archive"
	"github.com/luowst/fanarchive/app/fetch"
	"github.com/luowst/fanarchive/app/lofter"
)

// FeedTask archives favorites, shares or tag search results. Which
// artifacts are written depends on the save flags: images for image
// posts, text for titled (articles) or untitled (text) prose posts.
type FeedTask struct {
	Task
}

func (t *FeedTask) Execute(ctx context.Context) error {
	mode := lofter.FeedMode(t.Params.Mode)

	userID := ""
	if mode == lofter.ModeFavorites || mode == lofter.ModeShares {
		id, err := t.targetBlogID(ctx, t.Params.PageURL)
		if err != nil {
			return err
		}
		userID = id
	}

	strategy, err := lofter.NewFeedStrategy(mode, t.Params.PageURL, userID, t.lofterCookies())
	if err != nil {
		return err
	}

	t.state.Logf("enumerating %s feed", mode)
	fragments, err := lofter.Paginate(ctx, t.client, t.state, strategy, t.feedItemCap)
	if err != nil {
		return err
	}
	if len(fragments) == 0 {
		return fmt.Errorf("feed returned no items, check the login token and the link")
	}
	t.state.Logf("%d posts found", len(fragments))

	ex := lofter.NewExtractor()
	savedImages, savedTexts := 0, 0

	for i, fragment := range fragments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.state.SetProgress(30 + i*70/len(fragments))

		rec, err := ex.ExtractFeedPost(fragment)
		if err != nil {
			continue
		}
		if t.skipDownloaded(rec.SourceURL) {
			continue
		}

		if rec.HasImages() && t.Params.SaveImages {
			dir := t.writer.ImageDir(string(mode), rec)
			n, err := t.writer.SaveImages(ctx, t.client, t.state, dir, rec)
			if err != nil {
				return err
			}
			if n > 0 {
				savedImages += n
				t.record(archive.EntryImage, rec, dir)
			}
		}

		wantText := (rec.Title != "" && t.Params.SaveArticles) || (rec.Title == "" && t.Params.SaveText)
		if wantText && len(rec.BodyText) > 0 {
			path, err := t.writer.SaveText(t.state, t.writer.TextDir(string(mode), rec), rec)
			if err != nil {
				t.state.Logf("save failed, skipping %s: %v", rec.SourceURL, err)
				continue
			}
			savedTexts++
			t.record(archive.EntryArticle, rec, path)
		}

		if err := t.pause(ctx); err != nil {
			return err
		}
	}

	t.state.Logf("done, %d images and %d articles archived", savedImages, savedTexts)
	return nil
}

// targetBlogID resolves the numeric blog id of the feed owner through
// the blog's /view page.
func (t *FeedTask) targetBlogID(ctx context.Context, pageURL string) (string, error) {
	handle, err := lofter.AuthorHandle(pageURL)
	if err != nil {
		return "", err
	}

	viewURL := "https://" + handle + ".lofter.com/view"
	view, err := t.client.Fetch(ctx, t.state, fetch.Request{
		URL:     viewURL,
		Cookies: t.lofterCookies(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch view page: %w", err)
	}

	return lofter.BlogID(string(view.Body))
}
