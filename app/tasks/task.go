package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luowst/fanarchive/app/archive"
	"github.com/luowst/fanarchive/app/database"
	"github.com/luowst/fanarchive/app/export"
	"github.com/luowst/fanarchive/app/fetch"
	"github.com/luowst/fanarchive/app/lofter"
	"github.com/luowst/fanarchive/app/settings"
)

type Kind string

const (
	KindSingleImage Kind = "single_img"
	KindSingleText  Kind = "single_txt"
	KindAuthorImage Kind = "author_img"
	KindAuthorText  Kind = "author_txt"
	KindFeed        Kind = "like_share_tag"
	KindAO3         Kind = "ao3"
)

// RequiresCredential reports whether the kind needs a lofter login
// token. AO3 scraping is anonymous.
func (k Kind) RequiresCredential() bool {
	return k != KindAO3
}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSingleImage, KindSingleText, KindAuthorImage, KindAuthorText, KindFeed, KindAO3:
		return k, nil
	default:
		return "", fmt.Errorf("unknown task kind: %q", s)
	}
}

// Params is the request payload of one task run. Which fields matter
// depends on the kind.
type Params struct {
	URLs      []string `json:"urls"`
	AuthorURL string   `json:"author_url"`
	PageURL   string   `json:"page_url"`
	Mode      string   `json:"mode"`

	SaveImages   bool `json:"save_images"`
	SaveArticles bool `json:"save_articles"`
	SaveText     bool `json:"save_text"`

	DownloadChapters bool `json:"download_chapters"`
	SaveMetadata     bool `json:"save_metadata"`
	ExportHTML       bool `json:"export_html"`
	ExportPDF        bool `json:"export_pdf"`
	ExportEPUB       bool `json:"export_epub"`
}

// Fetcher is the slice of the HTTP client tasks need.
type Fetcher interface {
	Fetch(ctx context.Context, log fetch.Logger, r fetch.Request) (*fetch.Response, error)
}

// TaskInterface is one executable pipeline run.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetKind() Kind
}

// Task carries the collaborators every pipeline shares. Typed tasks
// embed it.
type Task struct {
	Kind     Kind
	Params   Params
	Settings settings.Settings

	client Fetcher
	repo   database.HistoryRepository
	writer *export.Writer
	state  *State

	// itemPause is the polite delay between processed items. Tests
	// zero it.
	itemPause time.Duration

	feedItemCap   int
	authorPageCap int
	tagPageCap    int
}

func (t *Task) GetKind() Kind {
	return t.Kind
}

// lofterCookies builds the credential cookie jar for lofter requests.
func (t *Task) lofterCookies() map[string]string {
	return map[string]string{t.Settings.CredentialKey: t.Settings.CredentialToken}
}

// skipDownloaded applies the pre-fetch dedup check. True means the URL
// was archived before and must not be fetched again.
func (t *Task) skipDownloaded(url string) bool {
	if !t.Settings.AutoDedup {
		return false
	}
	downloaded, err := t.repo.IsDownloaded(url)
	if err != nil {
		t.state.Logf("dedup lookup failed for %s: %v", url, err)
		return false
	}
	if downloaded {
		t.state.Logf("already archived, skipping: %s", url)
	}
	return downloaded
}

// record writes one ledger entry for a saved artifact.
func (t *Task) record(entryType archive.EntryType, rec *archive.PostRecord, filePath string) {
	entry := database.HistoryEntry{
		ID:           fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:         string(entryType),
		SourceURL:    rec.SourceURL,
		Title:        rec.DisplayTitle(),
		Author:       rec.Author,
		FilePath:     filePath,
		Source:       string(rec.Source),
		DownloadedAt: time.Now().Format("2006-01-02 15:04:05"),
		Timestamp:    time.Now().Unix(),
	}
	if err := t.repo.Record(entry); err != nil {
		t.state.Logf("ledger write failed for %s: %v", rec.SourceURL, err)
	}
}

// fetchLofterPost retrieves one post page plus the blog's /view page
// and parses them into a record. A failed view fetch only costs the
// author display name.
func (t *Task) fetchLofterPost(ctx context.Context, postURL string) (*archive.PostRecord, error) {
	raw, err := t.client.Fetch(ctx, t.state, fetch.Request{
		URL:     postURL,
		Cookies: t.lofterCookies(),
	})
	if err != nil {
		return nil, err
	}

	root, _, _ := strings.Cut(postURL, "/post")
	viewHTML := ""
	if view, err := t.client.Fetch(ctx, t.state, fetch.Request{
		URL:     root + "/view",
		Cookies: t.lofterCookies(),
	}); err == nil {
		viewHTML = string(view.Body)
	}

	return lofter.ExtractPost(string(raw.Body), viewHTML, postURL)
}

// cleanURLs drops blank lines from a user-supplied URL list.
func cleanURLs(urls []string) []string {
	var out []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (t *Task) pause(ctx context.Context) error {
	if t.itemPause <= 0 {
		return nil
	}
	timer := time.NewTimer(t.itemPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
