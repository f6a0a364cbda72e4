package lofter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/luowst/fanarchive/app/fetch"
)

// Fetcher is the slice of the HTTP client pagination needs. Satisfied by
// *fetch.Client; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, log fetch.Logger, r fetch.Request) (*fetch.Response, error)
}

// PageStrategy is one source mode's pagination behavior. The cursor is
// always derived from the current page's content, never from a server
// token; a missing cursor field reads as exhaustion.
type PageStrategy interface {
	BuildRequest() fetch.Request
	// ParsePage cuts the response into raw per-item fragments.
	ParsePage(body string) []string
	// Exhausted reports whether this page was the last one.
	Exhausted(fragments []string) bool
	// Advance moves the cursor past the current page. Returning false
	// means the cursor could not be located and pagination stops.
	Advance(fragments []string) bool
	// Interval is the polite delay between page requests.
	Interval() time.Duration
}

// Paginate drives a strategy to exhaustion, accumulating raw fragments.
// itemCap bounds the total (0 means unbounded); hitting it logs a
// warning but is not an error.
func Paginate(ctx context.Context, f Fetcher, log fetch.Logger, s PageStrategy, itemCap int) ([]string, error) {
	var all []string

	for page := 1; ; page++ {
		resp, err := f.Fetch(ctx, log, s.BuildRequest())
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			// A failed page ends enumeration with what we have.
			log.Logf("page %d fetch failed, stopping: %v", page, err)
			return all, nil
		}

		fragments := s.ParsePage(string(resp.Body))
		all = append(all, fragments...)
		log.Logf("page %d: %d items", page, len(fragments))

		if s.Exhausted(fragments) {
			return all, nil
		}
		if itemCap > 0 && len(all) >= itemCap {
			log.Logf("item cap of %d reached, stopping enumeration", itemCap)
			return all, nil
		}
		if !s.Advance(fragments) {
			return all, nil
		}

		if err := sleepCtx(ctx, s.Interval()); err != nil {
			return all, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const (
	archiveQuota = 50
	feedQuota    = 100
)

var (
	reArchiveItem   = regexp.MustCompile(`s\d*\.blogId.*\n.*noticeLinkTitle`)
	rePermalink     = regexp.MustCompile(`s\d*\.permalink="(.*?)"`)
	reArchiveTime   = regexp.MustCompile(`s\d*\.time=(\d+);`)
	reArchiveImgURL = regexp.MustCompile(`\d*\.imgurl="(.*?)"`)
)

// ArchiveItem is one entry of an author's archive listing.
type ArchiveItem struct {
	PostURL  string
	TimeMS   int64
	HasImage bool
}

// ArchiveStrategy pages through ArchiveBean.getArchivePostByTime with a
// timestamp cursor taken from the last item of each page.
type ArchiveStrategy struct {
	authorURL string
	authorID  string
	cookies   map[string]string

	cursorMS string
	lastBody string
}

func NewArchiveStrategy(authorURL, authorID string, cookies map[string]string) *ArchiveStrategy {
	return &ArchiveStrategy{
		authorURL: authorURL,
		authorID:  authorID,
		cookies:   cookies,
		cursorMS:  fmt.Sprintf("%d", time.Now().UnixMilli()),
	}
}

func (s *ArchiveStrategy) BuildRequest() fetch.Request {
	form := url.Values{
		"callCount":       {"1"},
		"scriptSessionId": {"${scriptSessionId}187"},
		"httpSessionId":   {""},
		"c0-scriptName":   {"ArchiveBean"},
		"c0-methodName":   {"getArchivePostByTime"},
		"c0-id":           {"0"},
		"c0-param0":       {"boolean:false"},
		"c0-param1":       {"number:" + s.authorID},
		"c0-param2":       {"number:" + s.cursorMS},
		"c0-param3":       {fmt.Sprintf("number:%d", archiveQuota)},
		"c0-param4":       {"boolean:false"},
		"batchId":         {"472351"},
	}
	return fetch.Request{
		URL:     s.authorURL + "dwr/call/plaincall/ArchiveBean.getArchivePostByTime.dwr",
		Method:  http.MethodPost,
		Form:    form,
		Referer: s.authorURL,
		Cookies: s.cookies,
	}
}

func (s *ArchiveStrategy) ParsePage(body string) []string {
	s.lastBody = body
	return reArchiveItem.FindAllString(body, -1)
}

func (s *ArchiveStrategy) Exhausted(fragments []string) bool {
	return len(fragments) < archiveQuota
}

func (s *ArchiveStrategy) Advance([]string) bool {
	re := regexp.MustCompile(fmt.Sprintf(`s%d\.time=(\d+);s.*type`, archiveQuota-1))
	m := re.FindStringSubmatch(s.lastBody)
	if m == nil {
		return false
	}
	s.cursorMS = m[1]
	return true
}

func (s *ArchiveStrategy) Interval() time.Duration { return 500 * time.Millisecond }

// ParseArchiveItem reads the post permalink, timestamp and image flag
// out of one archive fragment.
func (s *ArchiveStrategy) ParseArchiveItem(fragment string) (ArchiveItem, bool) {
	perm := rePermalink.FindStringSubmatch(fragment)
	if perm == nil {
		return ArchiveItem{}, false
	}
	item := ArchiveItem{PostURL: s.authorURL + "post/" + perm[1]}

	if t := reArchiveTime.FindStringSubmatch(fragment); t != nil {
		fmt.Sscanf(t[1], "%d", &item.TimeMS)
	}
	if img := reArchiveImgURL.FindStringSubmatch(fragment); img != nil && img[1] != "" {
		item.HasImage = true
	}
	return item, true
}

// FeedMode distinguishes the feed-style DWR sources.
type FeedMode string

const (
	ModeFavorites    FeedMode = "like1" // another user's public favorites
	ModeOwnFavorites FeedMode = "like2" // the logged-in account's favorites
	ModeShares       FeedMode = "share"
	ModeTag          FeedMode = "tag"
)

// FeedStrategy pages through the favorites/shares/tag endpoints with an
// offset cursor; tag feeds additionally track the last item's publish
// timestamp.
type FeedStrategy struct {
	mode    FeedMode
	cookies map[string]string
	referer string

	userID  string
	tagName string
	tagType string

	offset        int
	lastTimestamp string
}

// NewFeedStrategy builds the strategy for a feed mode. pageURL is the
// user-supplied listing URL (used to derive the user name and tag).
func NewFeedStrategy(mode FeedMode, pageURL, userID string, cookies map[string]string) (*FeedStrategy, error) {
	s := &FeedStrategy{mode: mode, cookies: cookies, userID: userID}

	switch mode {
	case ModeOwnFavorites:
		s.referer = "https://www.lofter.com/like"
	case ModeFavorites:
		handle, err := AuthorHandle(pageURL)
		if err != nil {
			return nil, err
		}
		s.referer = "https://www.lofter.com/favblog/" + handle
	case ModeShares:
		handle, err := AuthorHandle(pageURL)
		if err != nil {
			return nil, err
		}
		s.referer = "https://www.lofter.com/shareblog/" + handle
	case ModeTag:
		name, tagType, err := parseTagURL(pageURL)
		if err != nil {
			return nil, err
		}
		s.tagName, s.tagType = name, tagType
		s.referer = pageURL
		s.lastTimestamp = fmt.Sprintf("%d", time.Now().UnixMilli())
	default:
		return nil, fmt.Errorf("unsupported feed mode: %s", mode)
	}

	return s, nil
}

func parseTagURL(pageURL string) (name, tagType string, err error) {
	m := regexp.MustCompile(`https?://www\.lofter\.com/tag/([^/]+)/?(.*)`).FindStringSubmatch(pageURL)
	if m == nil {
		return "", "", fmt.Errorf("not a lofter tag URL: %s", pageURL)
	}
	name = m[1]
	if decoded, derr := url.PathUnescape(name); derr == nil {
		name = decoded
	}
	tagType = m[2]
	if tagType == "" {
		tagType = "new"
	}
	return name, tagType, nil
}

func (s *FeedStrategy) endpoint() string {
	switch s.mode {
	case ModeOwnFavorites:
		return "https://www.lofter.com/dwr/call/plaincall/PostBean.getFavTrackItem.dwr"
	case ModeFavorites:
		return "https://www.lofter.com/dwr/call/plaincall/BlogBean.queryLikePosts.dwr"
	case ModeShares:
		return "https://www.lofter.com/dwr/call/plaincall/BlogBean.querySharePosts.dwr"
	default:
		return "https://www.lofter.com/dwr/call/plaincall/TagBean.search.dwr"
	}
}

func (s *FeedStrategy) BuildRequest() fetch.Request {
	form := url.Values{
		"callCount":       {"1"},
		"httpSessionId":   {""},
		"scriptSessionId": {"${scriptSessionId}187"},
		"c0-id":           {"0"},
		"batchId":         {"472351"},
	}

	switch s.mode {
	case ModeFavorites, ModeShares:
		method := "queryLikePosts"
		if s.mode == ModeShares {
			method = "querySharePosts"
		}
		form.Set("c0-scriptName", "BlogBean")
		form.Set("c0-methodName", method)
		form.Set("c0-param0", "number:"+s.userID)
		form.Set("c0-param1", fmt.Sprintf("number:%d", feedQuota))
		form.Set("c0-param2", fmt.Sprintf("number:%d", s.offset))
		form.Set("c0-param3", "string:")
	case ModeOwnFavorites:
		form.Set("c0-scriptName", "PostBean")
		form.Set("c0-methodName", "getFavTrackItem")
		form.Set("c0-param0", fmt.Sprintf("number:%d", feedQuota))
		form.Set("c0-param1", fmt.Sprintf("number:%d", s.offset))
	case ModeTag:
		form.Set("c0-scriptName", "TagBean")
		form.Set("c0-methodName", "search")
		form.Set("c0-param0", "string:"+s.tagName)
		form.Set("c0-param1", "number:0")
		form.Set("c0-param2", "string:")
		form.Set("c0-param3", "string:"+s.tagType)
		form.Set("c0-param4", "boolean:false")
		form.Set("c0-param5", "number:0")
		form.Set("c0-param6", fmt.Sprintf("number:%d", feedQuota))
		form.Set("c0-param7", fmt.Sprintf("number:%d", s.offset))
		form.Set("c0-param8", "number:"+s.lastTimestamp)
		form.Set("batchId", "870178")
	}

	return fetch.Request{
		URL:     s.endpoint(),
		Method:  http.MethodPost,
		Form:    form,
		Referer: s.referer,
		Headers: map[string]string{"Host": "www.lofter.com"},
		Cookies: s.cookies,
	}
}

func (s *FeedStrategy) ParsePage(body string) []string {
	return SplitFeedFragments(body)
}

func (s *FeedStrategy) Exhausted(fragments []string) bool {
	return len(fragments) < feedQuota
}

func (s *FeedStrategy) Advance(fragments []string) bool {
	s.offset += feedQuota

	if s.mode == ModeTag {
		last := fragments[len(fragments)-1]
		m := rePublishTime.FindStringSubmatch(last)
		if m == nil {
			return false
		}
		s.lastTimestamp = m[1]
	}
	return true
}

func (s *FeedStrategy) Interval() time.Duration { return 500 * time.Millisecond }

// BlogID pulls the numeric blog id out of an author's /view page, where
// it rides in the control frame URL.
func BlogID(viewHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(viewHTML))
	if err != nil {
		return "", err
	}
	src, ok := doc.Find("iframe#control_frame").Attr("src")
	if !ok {
		return "", fmt.Errorf("control frame not found in view page")
	}
	_, id, ok := strings.Cut(src, "blogId=")
	if !ok || id == "" {
		return "", fmt.Errorf("blogId parameter not found in control frame URL")
	}
	return id, nil
}
