package tasks

import (
	"context"
	"fmt"

	"github.com/luowst/fanarchive/app/ao3"
	"github.com/luowst/fanarchive/app/archive"
	"github.com/luowst/fanarchive/app/fetch"
)

// AO3Task archives works from the Archive of Our Own. Input URLs may be
// works, series or paged listings; listings are expanded into work URLs
// first.
type AO3Task struct {
	Task
}

func (t *AO3Task) Execute(ctx context.Context) error {
	urls := cleanURLs(t.Params.URLs)
	if len(urls) == 0 {
		return fmt.Errorf("no links provided")
	}

	works, err := t.collectWorks(ctx, urls)
	if err != nil {
		return err
	}
	works = ao3.Dedup(works)
	if len(works) == 0 {
		t.state.Logf("no works found")
		return nil
	}
	t.state.Logf("%d works to archive", len(works))

	saved := 0
	for i, workURL := range works {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.state.SetProgress(i * 100 / len(works))

		if t.skipDownloaded(workURL) {
			continue
		}

		if err := t.archiveWork(ctx, workURL); err != nil {
			t.state.Logf("work failed, skipping %s: %v", workURL, err)
			continue
		}
		saved++

		if err := t.pause(ctx); err != nil {
			return err
		}
	}

	t.state.Logf("done, %d works archived", saved)
	return nil
}

// collectWorks expands listing URLs into individual work URLs.
func (t *AO3Task) collectWorks(ctx context.Context, urls []string) ([]string, error) {
	var works []string

	for _, u := range urls {
		switch ao3.ClassifyURL(u) {
		case ao3.KindWork:
			works = append(works, u)
		case ao3.KindSeries:
			found, err := ao3.WorksFromSeries(ctx, t.client, t.state, u)
			if err != nil {
				t.state.Logf("series listing failed, skipping %s: %v", u, err)
				continue
			}
			works = append(works, found...)
		case ao3.KindAuthor:
			found, err := ao3.WorksFromListing(ctx, t.client, t.state, u, t.authorPageCap)
			if err != nil {
				return works, err
			}
			works = append(works, found...)
		case ao3.KindTag:
			found, err := ao3.WorksFromListing(ctx, t.client, t.state, u, t.tagPageCap)
			if err != nil {
				return works, err
			}
			works = append(works, found...)
		default:
			t.state.Logf("not an ao3 link, skipping: %s", u)
		}
	}

	return works, nil
}

func (t *AO3Task) archiveWork(ctx context.Context, workURL string) error {
	resp, err := t.client.Fetch(ctx, t.state, fetch.Request{
		URL:     ao3.WithAdultParam(workURL),
		Cookies: ao3.SessionCookies(),
	})
	if err != nil {
		return err
	}

	work, err := ao3.ParseWork(string(resp.Body), workURL, t.Params.SaveMetadata)
	if err != nil {
		return err
	}
	rec := work.Record
	t.state.Logf("work: %s by %s", rec.DisplayTitle(), rec.Author)

	if t.Params.DownloadChapters && len(work.ChapterIDs) > 1 {
		rec.BodyText = nil
		for i, id := range work.ChapterIDs {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			chResp, err := t.client.Fetch(ctx, t.state, fetch.Request{
				URL:     ao3.ChapterURL(workURL, id),
				Cookies: ao3.SessionCookies(),
			})
			if err != nil {
				t.state.Logf("chapter %d fetch failed, skipping: %v", i+1, err)
				continue
			}

			ch, err := ao3.ParseChapter(string(chResp.Body), i)
			if err != nil {
				t.state.Logf("chapter %d parse failed, skipping: %v", i+1, err)
				continue
			}
			rec.Chapters = append(rec.Chapters, ch)

			if err := t.pause(ctx); err != nil {
				return err
			}
		}
	}

	if rec.Empty() {
		return fmt.Errorf("no content extracted")
	}

	path, err := t.writer.SaveText(t.state, t.writer.TextDir("ao3", rec), rec)
	if err != nil {
		return err
	}

	t.record(archive.EntryAO3, rec, path)
	return nil
}
