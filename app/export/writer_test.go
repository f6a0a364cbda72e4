package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luowst/fanarchive/app/fetch"
)

type nopLog struct{}

func (nopLog) Logf(string, ...any) {}

type fakeFetcher struct {
	body     []byte
	requests []fetch.Request
}

func (f *fakeFetcher) Fetch(_ context.Context, _ fetch.Logger, r fetch.Request) (*fetch.Response, error) {
	f.requests = append(f.requests, r)
	return &fetch.Response{StatusCode: 200, Body: f.body}, nil
}

func TestSaveText(t *testing.T) {
	w := NewWriter(t.TempDir(), Options{})
	rec := flatRecord()

	dir := w.TextDir("tag", rec)
	if !strings.HasSuffix(dir, filepath.Join("tag_save", "txt", "A[someauthor]")) {
		t.Fatalf("Unexpected text dir: %s", dir)
	}

	path, err := w.SaveText(nopLog{}, dir, rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if filepath.Base(path) != "T.txt" {
		t.Errorf("Unexpected artifact name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected artifact on disk, got: %v", err)
	}
	if !strings.Contains(string(data), "p1\n\np2") {
		t.Errorf("Unexpected artifact content:\n%s", data)
	}
}

func TestSaveTextCollision(t *testing.T) {
	w := NewWriter(t.TempDir(), Options{})
	rec := flatRecord()
	dir := w.TextDir("single", rec)

	first, err := w.SaveText(nopLog{}, dir, rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := w.SaveText(nopLog{}, dir, rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if first == second {
		t.Fatalf("Expected distinct files, both saves wrote %s", first)
	}
	if filepath.Base(second) != "T(1).txt" {
		t.Errorf("Expected numeric suffix before extension, got: %s", second)
	}

	third, err := w.SaveText(nopLog{}, dir, rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if filepath.Base(third) != "T(2).txt" {
		t.Errorf("Expected suffix to keep incrementing, got: %s", third)
	}
}

func TestSaveTextUntitledUsesDate(t *testing.T) {
	w := NewWriter(t.TempDir(), Options{})
	rec := flatRecord()
	rec.Title = ""

	path, err := w.SaveText(nopLog{}, w.TextDir("like", rec), rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if filepath.Base(path) != "2023-05-17 12.00.00.txt" {
		t.Errorf("Expected date-based name, got: %s", path)
	}
}

func TestSaveTextAO3Layout(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, Options{})
	rec := flatRecord()
	rec.Source = "ao3"

	dir := w.TextDir("ao3", rec)
	if dir != filepath.Join(base, "ao3", "A") {
		t.Errorf("Unexpected ao3 dir: %s", dir)
	}
}

func TestSaveTextOptionalHTML(t *testing.T) {
	w := NewWriter(t.TempDir(), Options{HTML: true})
	rec := flatRecord()

	path, err := w.SaveText(nopLog{}, w.TextDir("single", rec), rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	htmlPath := strings.TrimSuffix(path, ".txt") + ".html"
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("Expected html sibling, got: %v", err)
	}
	if !strings.Contains(string(data), "<p>p1</p>") {
		t.Errorf("Unexpected html content:\n%s", data)
	}
}

func TestSaveTextPDFFailureKeepsText(t *testing.T) {
	// No font path configured, so the pdf step fails and is skipped.
	w := NewWriter(t.TempDir(), Options{PDF: true})
	rec := flatRecord()

	path, err := w.SaveText(nopLog{}, w.TextDir("single", rec), rec)
	if err != nil {
		t.Fatalf("Expected pdf failure to be non-fatal, got: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected text artifact to survive, got: %v", err)
	}
	if _, err := os.Stat(strings.TrimSuffix(path, ".txt") + ".pdf"); !os.IsNotExist(err) {
		t.Errorf("Expected no pdf artifact, got: %v", err)
	}
}

func TestSaveImages(t *testing.T) {
	w := NewWriter(t.TempDir(), Options{})
	rec := flatRecord()
	rec.ImageURLs = []string{
		"https://imglf3.lf127.net/img/a.png?",
		"https://imglf3.lf127.net/img/b.gif?",
	}

	f := &fakeFetcher{body: []byte("imagebytes")}
	dir := w.ImageDir("author", rec)

	saved, err := w.SaveImages(context.Background(), f, nopLog{}, dir, rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved != 2 {
		t.Fatalf("Expected 2 saved images, got: %d", saved)
	}

	for _, name := range []string{"2023-05-17(1).png", "2023-05-17(2).gif"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("Expected image %s, got: %v", name, err)
			continue
		}
		if string(data) != "imagebytes" {
			t.Errorf("Unexpected image bytes in %s", name)
		}
	}

	if f.requests[0].Referer != "https://someauthor.lofter.com/" {
		t.Errorf("Expected blog root referer, got: %q", f.requests[0].Referer)
	}
}
