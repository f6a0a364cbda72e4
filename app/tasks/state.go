package tasks

import (
	"fmt"
	"sync"
	"time"
)

const maxLogLines = 200

// State is the single shared task state: one writer (the active
// worker), any number of readers through Snapshot. It is never
// persisted.
type State struct {
	mu sync.Mutex

	running   bool
	kind      Kind
	progress  int
	logs      []string
	message   string
	lastError string
}

// Snapshot is a point-in-time copy of the task state.
type Snapshot struct {
	Running  bool     `json:"running"`
	Kind     Kind     `json:"current_task"`
	Progress int      `json:"progress"`
	Logs     []string `json:"logs"`
	Message  string   `json:"message"`
	Error    string   `json:"error,omitempty"`
}

func NewState() *State {
	return &State{}
}

// Logf appends one timestamped line to the log ring, keeping only the
// newest lines. Lines are never reordered or deduplicated.
func (s *State) Logf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = fmt.Sprintf(format, args...)
	line := time.Now().Format("15:04:05") + " " + s.message
	s.logs = append(s.logs, line)
	if len(s.logs) > maxLogLines {
		s.logs = s.logs[len(s.logs)-maxLogLines:]
	}
}

// SetProgress clamps and stores the completion percentage.
func (s *State) SetProgress(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.progress = pct
}

func (s *State) SetError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// begin resets the state for a new run.
func (s *State) begin(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	s.kind = kind
	s.progress = 0
	s.logs = nil
	s.message = ""
	s.lastError = ""
}

// finish is the unconditional cleanup step at worker exit.
func (s *State) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.progress = 100
}

func (s *State) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *State) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Snapshot returns a copy; the log slice is duplicated so callers can
// hold it across runs.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]string, len(s.logs))
	copy(logs, s.logs)

	return Snapshot{
		Running:  s.running,
		Kind:     s.kind,
		Progress: s.progress,
		Logs:     logs,
		Message:  s.message,
		Error:    s.lastError,
	}
}
