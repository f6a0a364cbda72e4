package ao3

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/luowst/fanarchive/app/fetch"
)

type fakeFetcher struct {
	pages []string
	urls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ fetch.Logger, r fetch.Request) (*fetch.Response, error) {
	f.urls = append(f.urls, r.URL)
	if len(f.pages) == 0 {
		return nil, fmt.Errorf("no more pages")
	}
	body := f.pages[0]
	f.pages = f.pages[1:]
	return &fetch.Response{StatusCode: 200, Body: []byte(body)}, nil
}

type nopLog struct{}

func (nopLog) Logf(string, ...any) {}

func listingPage(hasNext bool, ids ...int) string {
	var b strings.Builder
	b.WriteString(`<html><body><ol class="work index group">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<li class="work blurb"><h4 class="heading"><a href="/works/%d">W%d</a></h4></li>`, id, id)
	}
	b.WriteString("</ol>")
	if hasNext {
		b.WriteString(`<ol class="pagination"><li class="next"><a href="?page=2">Next</a></li></ol>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestClassifyURL(t *testing.T) {
	cases := []struct {
		url  string
		want URLKind
	}{
		{"https://archiveofourown.org/works/123", KindWork},
		{"https://archiveofourown.org/series/456", KindSeries},
		{"https://archiveofourown.org/users/name/works", KindAuthor},
		{"https://archiveofourown.org/tags/Some%20Tag/works", KindTag},
		{"https://example.com/other", KindUnknown},
	}
	for _, c := range cases {
		if got := ClassifyURL(c.url); got != c.want {
			t.Errorf("ClassifyURL(%q) = %q, expected %q", c.url, got, c.want)
		}
	}
}

func TestParseWorkLinks(t *testing.T) {
	links, hasNext, err := ParseWorkLinks(listingPage(true, 11, 12, 13))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !hasNext {
		t.Error("Expected next page link to be detected")
	}
	if len(links) != 3 || links[0] != BaseURL+"/works/11" || links[2] != BaseURL+"/works/13" {
		t.Errorf("Unexpected links: %v", links)
	}
}

func TestParseWorkLinksSeries(t *testing.T) {
	page := `<html><body><ul class="series work index group">
<li class="work blurb"><h4 class="heading"><a href="/works/7">Seven</a></h4></li>
</ul></body></html>`

	links, hasNext, err := ParseWorkLinks(page)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if hasNext {
		t.Error("Expected no next page link")
	}
	if len(links) != 1 || links[0] != BaseURL+"/works/7" {
		t.Errorf("Unexpected links: %v", links)
	}
}

func TestWorksFromListing(t *testing.T) {
	f := &fakeFetcher{pages: []string{
		listingPage(true, 1, 2),
		listingPage(false, 3),
	}}

	links, err := WorksFromListing(context.Background(), f, nopLog{}, "https://archiveofourown.org/users/a/works", 20)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("Expected 3 works, got: %v", links)
	}
	if len(f.urls) != 2 {
		t.Fatalf("Expected 2 page fetches, got: %v", f.urls)
	}
	if !strings.HasSuffix(f.urls[0], "?page=1") || !strings.HasSuffix(f.urls[1], "?page=2") {
		t.Errorf("Unexpected page URLs: %v", f.urls)
	}
}

func TestWorksFromListingPageCap(t *testing.T) {
	f := &fakeFetcher{pages: []string{
		listingPage(true, 1),
		listingPage(true, 2),
	}}

	links, err := WorksFromListing(context.Background(), f, nopLog{}, "https://archiveofourown.org/users/a/works", 1)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(links) != 1 || len(f.urls) != 1 {
		t.Errorf("Expected cap after first page, got %d links from %d fetches", len(links), len(f.urls))
	}
}

func TestWorksFromListingFetchFailure(t *testing.T) {
	f := &fakeFetcher{}

	links, err := WorksFromListing(context.Background(), f, nopLog{}, "https://archiveofourown.org/users/a/works", 20)
	if err != nil {
		t.Fatalf("Expected failure to be absorbed, got: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("Expected no links, got: %v", links)
	}
}

func TestWorksFromSeries(t *testing.T) {
	f := &fakeFetcher{pages: []string{listingPage(false, 42)}}

	links, err := WorksFromSeries(context.Background(), f, nopLog{}, "https://archiveofourown.org/series/9")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(links) != 1 || links[0] != BaseURL+"/works/42" {
		t.Errorf("Unexpected links: %v", links)
	}
	if f.urls[0] != "https://archiveofourown.org/series/9" {
		t.Errorf("Unexpected series URL fetched: %s", f.urls[0])
	}
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Unexpected dedup result: %v", got)
	}
}
