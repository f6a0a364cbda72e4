// Package ao3 implements scraping for the Archive of Our Own: work page
// extraction with chapter following, and the series/author/tag listing
// walkers.
package ao3

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/luowst/fanarchive/app/archive"
)

const BaseURL = "https://archiveofourown.org"

// SessionCookies bypass the age and TOS interstitials.
func SessionCookies() map[string]string {
	return map[string]string{
		"accepted_tos": "20180523",
		"view_adult":   "true",
	}
}

// WithAdultParam appends view_adult=true to a work URL.
func WithAdultParam(workURL string) string {
	if strings.Contains(workURL, "?") {
		return workURL + "&view_adult=true"
	}
	return workURL + "?view_adult=true"
}

// Work is the parsed form of one work page before chapter following.
type Work struct {
	Record     *archive.PostRecord
	ChapterIDs []string
}

// ParseWork extracts title, author, metadata and body from a work page.
// When the chapter index lists more than one chapter the body is left to
// the chapter fetch loop and ChapterIDs carries the ids in reading
// order.
func ParseWork(rawHTML, workURL string, wantMetadata bool) (*Work, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse work page: %w", err)
	}

	rec := &archive.PostRecord{
		SourceURL:     workURL,
		Source:        archive.SourceAO3,
		PublishedDate: time.Now(),
	}

	rec.Title = strings.TrimSpace(doc.Find("h2.title.heading").First().Text())
	if rec.Title == "" {
		rec.Title = "unknown title"
	}

	author := doc.Find("a[rel='author']").First()
	rec.Author = strings.TrimSpace(author.Text())
	if rec.Author == "" {
		rec.Author = "unknown author"
	}
	if href, ok := author.Attr("href"); ok {
		rec.AuthorHandle = handleFromAuthorHref(href)
	}

	if published := strings.TrimSpace(doc.Find("dd.published").First().Text()); published != "" {
		if t, err := dateparse.ParseAny(published); err == nil {
			rec.PublishedDate = t
		}
	}

	if wantMetadata {
		rec.MetadataLines = parseMetadata(doc)
	}

	var chapterIDs []string
	doc.Find("#chapter_index option, #selected_id option").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("value"); ok && v != "" {
			chapterIDs = append(chapterIDs, lastPathSegment(v))
		}
	})

	rec.BodyText = workBody(doc)

	return &Work{Record: rec, ChapterIDs: chapterIDs}, nil
}

// workBody pulls the flat body paragraphs of a single-chapter work,
// with a loose text fallback when the paragraph query yields nothing.
func workBody(doc *goquery.Document) []string {
	var out []string
	doc.Find("div.userstuff p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	if len(out) > 0 {
		return out
	}

	doc.Find("div[class*='userstuff']").Each(func(_ int, s *goquery.Selection) {
		for _, line := range strings.Split(s.Text(), "\n") {
			if line = strings.TrimSpace(line); len(line) > 10 {
				out = append(out, line)
			}
		}
	})
	return out
}

// metadataQueries define the "Key: Value" lines in render order. Tag
// lists are truncated the way the archive's own blurbs do.
var metadataQueries = []struct {
	label string
	sel   string
	limit int
}{
	{"Fandom", "dd.fandom.tags a", 0},
	{"Rating", "dd.rating.tags a", 1},
	{"Warnings", "dd.warning.tags a", 0},
	{"Relationships", "dd.relationship.tags a", 5},
	{"Characters", "dd.character.tags a", 10},
	{"Tags", "dd.freeform.tags a", 10},
}

func parseMetadata(doc *goquery.Document) []string {
	var lines []string

	for _, q := range metadataQueries {
		var vals []string
		doc.Find(q.sel).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				vals = append(vals, t)
			}
		})
		if len(vals) == 0 {
			continue
		}
		if q.limit > 0 && len(vals) > q.limit {
			vals = vals[:q.limit]
		}
		lines = append(lines, fmt.Sprintf("%s: %s", q.label, strings.Join(vals, ", ")))
	}

	if summary := collapseSpace(doc.Find("div.summary.module blockquote").Text()); summary != "" {
		lines = append(lines, "Summary: "+summary)
	}
	if words := strings.TrimSpace(doc.Find("dd.words").First().Text()); words != "" {
		lines = append(lines, "Words: "+words)
	}
	if chapters := strings.TrimSpace(doc.Find("dd.chapters").First().Text()); chapters != "" {
		lines = append(lines, "Chapters: "+chapters)
	}

	return lines
}

// ParseChapter extracts one chapter page. idx is the zero-based chapter
// position, used for the title fallback.
func ParseChapter(rawHTML string, idx int) (archive.Chapter, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return archive.Chapter{}, fmt.Errorf("failed to parse chapter page: %w", err)
	}

	ch := archive.Chapter{
		Title: collapseSpace(doc.Find("h3.title").First().Text()),
	}
	if ch.Title == "" {
		ch.Title = fmt.Sprintf("Chapter %d", idx+1)
	}

	doc.Find("div.userstuff.module p, div.userstuff p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			ch.Paragraphs = append(ch.Paragraphs, t)
		}
	})

	return ch, nil
}

// ChapterURL builds the adult-visible chapter page URL.
func ChapterURL(workURL, chapterID string) string {
	base, _, _ := strings.Cut(workURL, "?")
	return base + "/chapters/" + chapterID + "?view_adult=true"
}

func handleFromAuthorHref(href string) string {
	// hrefs look like /users/<name>/pseuds/<pseud>
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) >= 2 && parts[0] == "users" {
		return parts[1]
	}
	return ""
}

func lastPathSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
