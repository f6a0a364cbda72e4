// Package lofter implements scraping for lofter blogs: the DWR
// script-call endpoints used by archive and feed listings, and plain
// markup extraction for individual posts.
package lofter

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/luowst/fanarchive/app/archive"
)

// ErrMissingPostURL marks a feed fragment without a usable post link.
// The fragment is skipped; the batch continues.
var ErrMissingPostURL = errors.New("fragment has no blogPageUrl")

// DWR responses are generated javascript, not markup. Every field is
// located independently by pattern; all but blogPageUrl are optional.
var (
	reBlogPageURL  = regexp.MustCompile(`s\d{1,5}\.blogPageUrl="(.*?)"`)
	reBlogNickName = regexp.MustCompile(`s\d{1,5}\.blogNickName="(.*?)"`)
	rePublishTime  = regexp.MustCompile(`s\d{1,5}\.publishTime=(\d+)`)
	reContent      = regexp.MustCompile(`s\d{1,5}\.content="(.*?)";`)
	reTitle        = regexp.MustCompile(`s\d{1,5}\.title="(.*?)"`)
	reOriginPhotos = regexp.MustCompile(`originPhotoLinks="(\[.*?\])"`)

	reBlogHost = regexp.MustCompile(`https?://(.*?)\.lofter\.com`)
)

// Extractor turns DWR feed fragments into post records.
type Extractor struct {
	conv *md.Converter
}

func NewExtractor() *Extractor {
	return &Extractor{conv: md.NewConverter("", true, nil)}
}

// SplitFeedFragments cuts a feed-style DWR response into per-post
// fragments. The first piece precedes any post and is dropped.
func SplitFeedFragments(body string) []string {
	parts := strings.Split(body, "activityTags")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// ExtractFeedPost assembles a record from one fragment. Optional fields
// missing from the fragment are simply left at their fallback values.
func (e *Extractor) ExtractFeedPost(fragment string) (*archive.PostRecord, error) {
	m := reBlogPageURL.FindStringSubmatch(fragment)
	if m == nil {
		return nil, ErrMissingPostURL
	}
	postURL := m[1]

	rec := &archive.PostRecord{
		SourceURL: postURL,
		Source:    archive.SourceLofter,
		Author:    "unknown author",
	}

	if h := reBlogHost.FindStringSubmatch(postURL); h != nil {
		rec.AuthorHandle = h[1]
	}

	if m := reBlogNickName.FindStringSubmatch(fragment); m != nil {
		rec.Author = unescapeScriptValue(m[1])
	}

	rec.PublishedDate = time.Now()
	if m := rePublishTime.FindStringSubmatch(fragment); m != nil {
		if ms, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			rec.PublishedDate = time.UnixMilli(ms)
		}
	}

	if m := reTitle.FindStringSubmatch(fragment); m != nil {
		rec.Title = strings.TrimSpace(unescapeScriptValue(m[1]))
	}

	if m := reContent.FindStringSubmatch(fragment); m != nil {
		rec.BodyText = e.htmlToParagraphs(unescapeScriptValue(m[1]))
	}

	if m := reOriginPhotos.FindStringSubmatch(fragment); m != nil {
		rec.ImageURLs = archive.FilterImageURLs(parsePhotoLinks(m[1]))
	}

	return rec, nil
}

// htmlToParagraphs converts the embedded content HTML to plain
// paragraphs. Conversion failures degrade to the raw value.
func (e *Extractor) htmlToParagraphs(rawHTML string) []string {
	text, err := e.conv.ConvertString(rawHTML)
	if err != nil {
		text = rawHTML
	}
	return splitParagraphs(text)
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// unescapeScriptValue decodes the backslash escapes (\uXXXX, \", \n)
// DWR uses inside string values. Undecodable input is returned as is.
func unescapeScriptValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	unquoted, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return unquoted
}

type photoLink struct {
	Orign string `json:"orign"`
	Raw   string `json:"raw"`
}

// parsePhotoLinks decodes the escaped JSON array carried in
// originPhotoLinks, preferring the raw variant of each link.
func parsePhotoLinks(escaped string) []string {
	cleaned := strings.ReplaceAll(escaped, `\`, "")

	var links []photoLink
	if err := json.Unmarshal([]byte(cleaned), &links); err != nil {
		return nil
	}

	var out []string
	for _, l := range links {
		u := l.Raw
		if u == "" {
			u, _, _ = strings.Cut(l.Orign, "?imageView")
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// AuthorHandle extracts the blog subdomain from any lofter URL.
func AuthorHandle(url string) (string, error) {
	m := reBlogHost.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("not a lofter blog URL: %s", url)
	}
	return m[1], nil
}
