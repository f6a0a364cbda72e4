package export

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/luowst/fanarchive/app/archive"
)

// htmlDocument is the data fed into docTemplate. It is also the
// intermediate form the PDF renderer works from.
type htmlDocument struct {
	Title     string
	Author    string
	SourceURL string
	Date      string
	Fandom    string
	Rating    string
	Meta      []metaItem
	Chapters  []htmlChapter
}

type metaItem struct {
	Label string
	Value string
}

type htmlChapter struct {
	Title      string
	Paragraphs []string
}

var docTemplate = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}} - {{.Author}}</title>
<style>
body { font-family: serif; font-size: 12pt; line-height: 1.8; color: #222; }
.cover { text-align: center; padding-top: 15%; page-break-after: always; }
.cover-title { font-size: 32pt; font-weight: bold; }
.cover-author { font-size: 18pt; color: #555; }
.cover-meta { font-size: 10pt; color: #7f8c8d; margin-top: 100px; }
.metadata-page { page-break-after: always; }
.meta-item { margin-bottom: 8px; font-size: 11pt; }
.meta-label { font-weight: bold; color: #555; }
.chapter-title { font-size: 18pt; font-weight: bold; text-align: center; }
p { text-indent: 2em; margin-bottom: 12px; }
.page-break { page-break-after: always; }
</style>
</head>
<body>
<div class="cover">
<div class="cover-title">{{.Title}}</div>
<div class="cover-author">By {{.Author}}</div>
<div class="cover-meta">
{{- if .Fandom}}<div class="cover-fandom">{{.Fandom}}</div>{{end}}
<div>Rating: {{if .Rating}}{{.Rating}}{{else}}Not Rated{{end}}</div>
<div>{{.Date}}</div>
</div>
</div>
{{- if .Meta}}
<div class="metadata-page">
<div class="metadata-title">Details</div>
{{- range .Meta}}
<div class="meta-item">{{if .Label}}<span class="meta-label">{{.Label}}:</span> {{end}}<span class="meta-value">{{.Value}}</span></div>
{{- end}}
<div class="meta-item"><span class="meta-label">Original URL:</span> <span class="meta-value">{{.SourceURL}}</span></div>
</div>
{{- end}}
<div class="content">
{{- range $i, $ch := .Chapters}}
{{- if $i}}<div class="page-break"></div>{{end}}
<div class="chapter">
{{- if $ch.Title}}
<h2 class="chapter-title">{{$ch.Title}}</h2>
{{- end}}
{{- range $ch.Paragraphs}}
<p>{{.}}</p>
{{- end}}
</div>
{{- end}}
</div>
</body>
</html>
`))

// buildDocument normalizes a record into the shared document form:
// metadata lines split on the first colon, fandom and rating lifted onto
// the cover, the flat body folded into a single untitled chapter.
func buildDocument(rec *archive.PostRecord) *htmlDocument {
	doc := &htmlDocument{
		Title:     rec.DisplayTitle(),
		Author:    rec.Author,
		SourceURL: rec.SourceURL,
		Date:      time.Now().Format("2006-01-02"),
	}

	for _, line := range rec.MetadataLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, found := strings.Cut(line, ":")
		if !found {
			doc.Meta = append(doc.Meta, metaItem{Value: line})
			continue
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		switch label {
		case "Fandom":
			doc.Fandom = value
		case "Rating":
			doc.Rating = value
		}
		doc.Meta = append(doc.Meta, metaItem{Label: label, Value: value})
	}

	if len(rec.Chapters) > 0 {
		for _, ch := range rec.Chapters {
			doc.Chapters = append(doc.Chapters, htmlChapter{Title: ch.Title, Paragraphs: ch.Paragraphs})
		}
	} else {
		doc.Chapters = []htmlChapter{{Paragraphs: rec.BodyText}}
	}

	return doc
}

// HTMLArtifact renders the styled HTML form of a record.
func HTMLArtifact(rec *archive.PostRecord) (string, error) {
	var b strings.Builder
	if err := docTemplate.Execute(&b, buildDocument(rec)); err != nil {
		return "", fmt.Errorf("failed to render html document: %w", err)
	}
	return b.String(), nil
}
