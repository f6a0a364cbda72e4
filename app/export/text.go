package export

import (
	"strings"

	"github.com/luowst/fanarchive/app/archive"
)

const separator = "============================================================"

// TextArtifact renders the plain-text form of a record: a header block
// with title, author, date and source URL, the metadata block when
// present, then the body. Chapters are joined with visible section
// markers carrying the chapter title.
func TextArtifact(rec *archive.PostRecord) string {
	var b strings.Builder

	b.WriteString(rec.DisplayTitle())
	b.WriteString(" by ")
	b.WriteString(archive.AuthorDir(rec.Author, rec.AuthorHandle))
	b.WriteString("\n")
	b.WriteString("Published: " + rec.PublishedDate.Format("2006-01-02") + "\n")
	b.WriteString("Source: " + rec.SourceURL + "\n")
	b.WriteString(separator + "\n\n")

	if len(rec.MetadataLines) > 0 {
		b.WriteString(strings.Join(rec.MetadataLines, "\n"))
		b.WriteString("\n\n" + separator + "\n\n")
	}

	if len(rec.Chapters) > 0 {
		for i, ch := range rec.Chapters {
			if i > 0 {
				b.WriteString("\n\n")
			}
			if ch.Title != "" {
				b.WriteString(separator + "\n" + ch.Title + "\n" + separator + "\n\n")
			}
			b.WriteString(strings.Join(ch.Paragraphs, "\n\n"))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(strings.Join(rec.BodyText, "\n\n"))
	b.WriteString("\n")
	return b.String()
}
