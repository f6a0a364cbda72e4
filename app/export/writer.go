// Package export renders archived records to files on disk: plain text
// always, HTML, PDF and EPUB on request, plus raw image bytes for image
// posts. Artifacts are grouped per source mode and per author.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luowst/fanarchive/app/archive"
	"github.com/luowst/fanarchive/app/fetch"
)

// Fetcher is the slice of the HTTP client image saving needs.
type Fetcher interface {
	Fetch(ctx context.Context, log fetch.Logger, r fetch.Request) (*fetch.Response, error)
}

// Options select the optional artifact formats. Text is always written.
type Options struct {
	HTML        bool
	PDF         bool
	EPUB        bool
	PDFFontPath string
}

// Writer places artifacts under a base directory:
//
//	<base>/<mode>_save/txt/<author[handle]>/<title>.txt
//	<base>/<mode>_save/img/<author[handle]>/<date>(<n>).<ext>
//	<base>/ao3/<author>/<title>.txt
type Writer struct {
	baseDir string
	opts    Options
}

func NewWriter(baseDir string, opts Options) *Writer {
	return &Writer{baseDir: baseDir, opts: opts}
}

// TextDir returns the per-author text directory for a mode.
func (w *Writer) TextDir(mode string, rec *archive.PostRecord) string {
	if rec.Source == archive.SourceAO3 {
		return filepath.Join(w.baseDir, "ao3", archive.SafeFileName(rec.Author))
	}
	return filepath.Join(w.baseDir, mode+"_save", "txt", archive.AuthorDir(rec.Author, rec.AuthorHandle))
}

// ImageDir returns the per-author image directory for a mode.
func (w *Writer) ImageDir(mode string, rec *archive.PostRecord) string {
	return filepath.Join(w.baseDir, mode+"_save", "img", archive.AuthorDir(rec.Author, rec.AuthorHandle))
}

// UniquePath returns path itself when free, otherwise the first
// "name(n).ext" variant that does not exist yet.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// baseName picks the text artifact stem: the sanitized title, or the
// publish date for untitled posts.
func baseName(rec *archive.PostRecord) string {
	if rec.Title != "" {
		return archive.SafeFileName(rec.Title)
	}
	return rec.PublishedDate.Format("2006-01-02 15.04.05")
}

// SaveText writes the text artifact of rec into dir and, per Options,
// the HTML, PDF and EPUB siblings next to it. Optional artifact
// failures are logged and swallowed; the text file already written is
// kept regardless. Returns the text artifact path.
func (w *Writer) SaveText(log fetch.Logger, dir string, rec *archive.PostRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := UniquePath(filepath.Join(dir, baseName(rec)+".txt"))
	if err := os.WriteFile(path, []byte(TextArtifact(rec)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write text artifact: %w", err)
	}

	stem := strings.TrimSuffix(path, ".txt")

	if w.opts.HTML || w.opts.PDF {
		if doc, err := HTMLArtifact(rec); err != nil {
			log.Logf("html rendering failed, skipping: %v", err)
		} else if w.opts.HTML {
			if err := os.WriteFile(stem+".html", []byte(doc), 0o644); err != nil {
				log.Logf("html write failed, skipping: %v", err)
			}
		}
	}

	if w.opts.PDF {
		if err := PDFArtifact(rec, w.opts.PDFFontPath, stem+".pdf"); err != nil {
			log.Logf("pdf generation failed, skipping: %v", err)
		}
	}

	if w.opts.EPUB {
		if err := EPUBArtifact(rec, stem+".epub"); err != nil {
			log.Logf("epub generation failed, skipping: %v", err)
		}
	}

	return path, nil
}

// SaveImages downloads every image URL of rec into dir as
// "<date>(<n>).<ext>" with the blog root as Referer. Individual image
// failures are logged and skipped. Returns the number of images saved.
func (w *Writer) SaveImages(ctx context.Context, f Fetcher, log fetch.Logger, dir string, rec *archive.PostRecord) (int, error) {
	if len(rec.ImageURLs) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	date := rec.PublishedDate.Format("2006-01-02")
	referer, _, _ := strings.Cut(rec.SourceURL, "post")

	saved := 0
	for i, u := range rec.ImageURLs {
		if ctx.Err() != nil {
			return saved, ctx.Err()
		}

		resp, err := f.Fetch(ctx, log, fetch.Request{URL: u, Referer: referer})
		if err != nil {
			log.Logf("image download failed, skipping: %v", err)
			continue
		}

		name := fmt.Sprintf("%s(%d).%s", date, i+1, archive.ImageExt(u))
		path := UniquePath(filepath.Join(dir, name))
		if err := os.WriteFile(path, resp.Body, 0o644); err != nil {
			log.Logf("image write failed, skipping: %v", err)
			continue
		}
		saved++
	}
	return saved, nil
}
