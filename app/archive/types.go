package archive

import (
	"time"
)

type SourceSystem string

const (
	SourceLofter SourceSystem = "lofter"
	SourceAO3    SourceSystem = "ao3"
)

// EntryType classifies a ledger entry. Everything that is not an image
// counts towards the "articles" bucket in the summary stats.
type EntryType string

const (
	EntryImage   EntryType = "image"
	EntryArticle EntryType = "article"
	EntryAO3     EntryType = "ao3"
)

type Chapter struct {
	Title      string
	Paragraphs []string
}

// PostRecord is the normalized in-memory representation of one archived
// content item, regardless of which platform it came from.
type PostRecord struct {
	SourceURL     string
	Source        SourceSystem
	Title         string
	Author        string
	AuthorHandle  string // platform-specific short id (lofter subdomain, ao3 username)
	PublishedDate time.Time
	BodyText      []string
	ImageURLs     []string
	MetadataLines []string // free-form "Key: Value" lines, source-dependent
	Chapters      []Chapter
}

// Empty reports whether the record carries no content at all. Such
// records are discarded before export.
func (r *PostRecord) Empty() bool {
	return len(r.BodyText) == 0 && len(r.ImageURLs) == 0 && len(r.Chapters) == 0
}

// HasImages reports whether the record carries at least one image URL.
func (r *PostRecord) HasImages() bool {
	return len(r.ImageURLs) > 0
}

// DisplayTitle returns the record title with the shared untitled fallback.
func (r *PostRecord) DisplayTitle() string {
	if r.Title == "" {
		return "untitled"
	}
	return r.Title
}
