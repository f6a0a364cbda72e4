// Package tasks runs the archival pipelines: one background worker at a
// time, started, observed and stopped through the Runner. The worker is
// the only writer of artifacts and ledger entries; the control side
// only reads state snapshots.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/luowst/fanarchive/app/cfg"
	"github.com/luowst/fanarchive/app/database"
	"github.com/luowst/fanarchive/app/export"
	"github.com/luowst/fanarchive/app/settings"
)

// ErrTaskRunning is returned by Start while a task is active.
var ErrTaskRunning = errors.New("a task is already running")

var _ TaskRunnerInterface = (*Runner)(nil)

// TaskRunnerInterface is the control surface the HTTP layer uses.
type TaskRunnerInterface interface {
	Start(kind Kind, p Params) error
	Status() Snapshot
	Stop()
}

type Runner struct {
	mu     sync.Mutex
	cancel context.CancelFunc

	state  *State
	client Fetcher
	repo   database.HistoryRepository
	store  *settings.Store

	pdfFontPath   string
	feedItemCap   int
	authorPageCap int
	tagPageCap    int
	itemPause     time.Duration
}

func NewRunner(client Fetcher, repo database.HistoryRepository, store *settings.Store) *Runner {
	c := cfg.Get()

	return &Runner{
		state:         NewState(),
		client:        client,
		repo:          repo,
		store:         store,
		pdfFontPath:   c.PDFFontPath,
		feedItemCap:   c.FeedItemCap,
		authorPageCap: c.AuthorPageCap,
		tagPageCap:    c.TagPageCap,
		itemPause:     500 * time.Millisecond,
	}
}

// Start spawns the background worker for one task run. At most one task
// is active at a time; a second Start is rejected outright.
func (r *Runner) Start(kind Kind, p Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.isRunning() {
		return ErrTaskRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state.begin(kind)

	go r.run(ctx, kind, p)
	return nil
}

// Status returns a snapshot of the task state.
func (r *Runner) Status() Snapshot {
	return r.state.Snapshot()
}

// Stop requests cancellation of the active task. The worker observes it
// at its loop boundaries; in-flight fetches are not interrupted.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.state.markStopped()
	r.state.Logf("stop requested")
}

func (r *Runner) run(ctx context.Context, kind Kind, p Params) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("unexpected failure: %v", rec)
			r.state.SetError(msg)
			r.state.Logf("%s\n%s", msg, debug.Stack())
		}
		r.state.finish()
		r.state.Logf("task finished")
	}()

	s, err := r.store.Load()
	if err != nil {
		r.fail("failed to load settings: %v", err)
		return
	}
	if kind.RequiresCredential() && !s.HasCredential() {
		r.fail("login token is not configured, set it in settings first")
		return
	}

	task := r.buildTask(kind, p, s)
	r.state.Logf("task %s started", kind)

	if err := task.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			r.state.Logf("task stopped")
			return
		}
		r.state.SetError(err.Error())
		r.state.Logf("task failed: %v", err)
	}
}

func (r *Runner) fail(format string, args ...any) {
	r.state.SetError(fmt.Sprintf(format, args...))
	r.state.Logf(format, args...)
}

func (r *Runner) buildTask(kind Kind, p Params, s settings.Settings) TaskInterface {
	writer := export.NewWriter(s.SavePath, export.Options{
		HTML:        p.ExportHTML,
		PDF:         p.ExportPDF,
		EPUB:        p.ExportEPUB,
		PDFFontPath: r.pdfFontPath,
	})

	base := Task{
		Kind:          kind,
		Params:        p,
		Settings:      s,
		client:        r.client,
		repo:          r.repo,
		writer:        writer,
		state:         r.state,
		itemPause:     r.itemPause,
		feedItemCap:   r.feedItemCap,
		authorPageCap: r.authorPageCap,
		tagPageCap:    r.tagPageCap,
	}

	switch kind {
	case KindSingleImage:
		return &SingleImageTask{Task: base}
	case KindSingleText:
		return &SingleTextTask{Task: base}
	case KindAuthorImage:
		return &AuthorImageTask{Task: base}
	case KindAuthorText:
		return &AuthorTextTask{Task: base}
	case KindFeed:
		return &FeedTask{Task: base}
	default:
		return &AO3Task{Task: base}
	}
}
