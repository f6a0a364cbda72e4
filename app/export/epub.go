package export

import (
	"fmt"
	"html"
	"strings"

	epub "github.com/go-shiori/go-epub"

	"github.com/luowst/fanarchive/app/archive"
)

// EPUBArtifact assembles a minimal e-book: a metadata page when the
// record carries one, one content document per chapter in reading
// order, and a linear spine.
func EPUBArtifact(rec *archive.PostRecord, path string) error {
	doc := buildDocument(rec)

	book, err := epub.NewEpub(doc.Title)
	if err != nil {
		return fmt.Errorf("failed to create epub: %w", err)
	}
	book.SetAuthor(doc.Author)

	if len(doc.Meta) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(doc.Title))
		fmt.Fprintf(&b, "<p>by %s</p>\n", html.EscapeString(doc.Author))
		for _, m := range doc.Meta {
			if m.Label != "" {
				fmt.Fprintf(&b, "<div><b>%s:</b> %s</div>\n", html.EscapeString(m.Label), html.EscapeString(m.Value))
			} else {
				fmt.Fprintf(&b, "<div>%s</div>\n", html.EscapeString(m.Value))
			}
		}
		fmt.Fprintf(&b, "<div><b>Original URL:</b> %s</div>\n", html.EscapeString(doc.SourceURL))

		if _, err := book.AddSection(b.String(), "About", "cover.xhtml", ""); err != nil {
			return fmt.Errorf("failed to add metadata page: %w", err)
		}
	}

	for i, ch := range doc.Chapters {
		title := ch.Title
		if title == "" {
			title = doc.Title
		}

		var b strings.Builder
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(title))
		for _, p := range ch.Paragraphs {
			if strings.TrimSpace(p) == "" {
				continue
			}
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(p))
		}

		name := fmt.Sprintf("chapter_%d.xhtml", i+1)
		if _, err := book.AddSection(b.String(), title, name, ""); err != nil {
			return fmt.Errorf("failed to add chapter %d: %w", i+1, err)
		}
	}

	if err := book.Write(path); err != nil {
		return fmt.Errorf("failed to write epub: %w", err)
	}
	return nil
}
