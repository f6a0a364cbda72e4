package export

import (
	"strings"
	"testing"
	"time"

	"github.com/luowst/fanarchive/app/archive"
)

func flatRecord() *archive.PostRecord {
	return &archive.PostRecord{
		SourceURL:     "https://someauthor.lofter.com/post/1a2b_3c4d",
		Source:        archive.SourceLofter,
		Title:         "T",
		Author:        "A",
		AuthorHandle:  "someauthor",
		PublishedDate: time.Date(2023, 5, 17, 12, 0, 0, 0, time.UTC),
		BodyText:      []string{"p1", "p2"},
	}
}

func TestTextArtifact(t *testing.T) {
	got := TextArtifact(flatRecord())

	if !strings.HasPrefix(got, "T by A[someauthor]\n") {
		t.Errorf("Unexpected header line, got:\n%s", got)
	}
	if !strings.Contains(got, "Published: 2023-05-17\n") {
		t.Errorf("Expected date line, got:\n%s", got)
	}
	if !strings.Contains(got, "Source: https://someauthor.lofter.com/post/1a2b_3c4d\n") {
		t.Errorf("Expected source line, got:\n%s", got)
	}

	p1 := strings.Index(got, "p1")
	p2 := strings.Index(got, "p2")
	if p1 < 0 || p2 < 0 || p2 < p1 {
		t.Errorf("Expected paragraphs in order, got:\n%s", got)
	}
}

func TestTextArtifactChapters(t *testing.T) {
	rec := flatRecord()
	rec.BodyText = nil
	rec.Chapters = []archive.Chapter{
		{Title: "One", Paragraphs: []string{"a1", "a2"}},
		{Title: "Two", Paragraphs: []string{"b1"}},
	}

	got := TextArtifact(rec)

	one := strings.Index(got, separator+"\nOne\n"+separator)
	two := strings.Index(got, separator+"\nTwo\n"+separator)
	if one < 0 || two < 0 || two < one {
		t.Fatalf("Expected chapter markers in order, got:\n%s", got)
	}
	if a2 := strings.Index(got, "a2"); a2 < 0 || a2 > two {
		t.Errorf("Expected first chapter body before second marker, got:\n%s", got)
	}
}

func TestTextArtifactMetadata(t *testing.T) {
	rec := flatRecord()
	rec.MetadataLines = []string{"Fandom: F", "Rating: General Audiences"}

	got := TextArtifact(rec)

	if !strings.Contains(got, "Fandom: F\nRating: General Audiences\n") {
		t.Errorf("Expected metadata block, got:\n%s", got)
	}
	if strings.Count(got, separator) != 2 {
		t.Errorf("Expected metadata to be fenced by separators, got:\n%s", got)
	}
}

func TestTextArtifactUntitled(t *testing.T) {
	rec := flatRecord()
	rec.Title = ""

	if got := TextArtifact(rec); !strings.HasPrefix(got, "untitled by ") {
		t.Errorf("Expected untitled fallback, got:\n%s", got)
	}
}

func TestHTMLArtifact(t *testing.T) {
	rec := flatRecord()
	rec.MetadataLines = []string{"Fandom: F", "Rating: Teen And Up Audiences", "no colon line"}
	rec.BodyText = nil
	rec.Chapters = []archive.Chapter{
		{Title: "One", Paragraphs: []string{"a1"}},
		{Title: "Two", Paragraphs: []string{"b1"}},
		{Title: "Three", Paragraphs: []string{"c1"}},
	}

	got, err := HTMLArtifact(rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, want := range []string{
		`<div class="cover-title">T</div>`,
		`<div class="cover-fandom">F</div>`,
		"Rating: Teen And Up Audiences",
		`<span class="meta-label">Fandom:</span>`,
		`<div class="meta-item"><span class="meta-value">no colon line</span></div>`,
		`<h2 class="chapter-title">Two</h2>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in document, got:\n%s", want, got)
		}
	}

	if n := strings.Count(got, `<div class="page-break"></div>`); n != 2 {
		t.Errorf("Expected 2 page breaks between 3 chapters, got %d", n)
	}
}

func TestHTMLArtifactFlat(t *testing.T) {
	got, err := HTMLArtifact(flatRecord())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(got, "<p>p1</p>") || !strings.Contains(got, "<p>p2</p>") {
		t.Errorf("Expected flat body paragraphs, got:\n%s", got)
	}
	if strings.Contains(got, "page-break\"></div>") {
		t.Errorf("Expected no page breaks for a flat document, got:\n%s", got)
	}
	if strings.Contains(got, `<div class="metadata-page">`) {
		t.Errorf("Expected no metadata page, got:\n%s", got)
	}
}
