package copilot

import (
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yoockh/screencopilot/internal/protocol"
	"github.com/yoockh/screencopilot/internal/utils"
)

const (
	TaskKindTrackError = "track_error"

	DefaultTaskMinutes = 5.0
	minTaskMinutes     = 1.0
	maxTaskMinutes     = 60.0

	noteErrorReappeared = "Error pattern reappeared."
)

// Task ids are unique across every session in the process.
var taskSeq atomic.Int64

// WatchTask watches incoming OCR text until Until. A nil Pattern means the
// built-in error heuristic is used.
type WatchTask struct {
	ID      int64
	Kind    string
	Until   time.Time
	Pattern *regexp.Regexp
}

func (t WatchTask) matches(text string) bool {
	if t.Pattern != nil {
		return t.Pattern.MatchString(text)
	}
	return HasErrorSignals(text)
}

// Scheduler is the registry of live watch tasks of one session. Tasks are
// removed exactly once: on cancel, on expiry or on trigger.
type Scheduler struct {
	mu    sync.Mutex
	clock Clock
	tasks map[int64]WatchTask
}

func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock, tasks: make(map[int64]WatchTask)}
}

// ClampMinutes bounds a requested duration to [1, 60] minutes.
func ClampMinutes(m float64) float64 {
	return max(minTaskMinutes, min(maxTaskMinutes, m))
}

// Start registers a track_error task. pattern is matched case-insensitively;
// an empty pattern selects the error heuristic.
func (s *Scheduler) Start(minutes float64, pattern string) (WatchTask, error) {
	const op = "Scheduler.Start"

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile("(?i)" + pattern)
		if err != nil {
			return WatchTask{}, utils.E(utils.CodeInvalidArgument, op, "invalid pattern", err)
		}
	}

	d := time.Duration(ClampMinutes(minutes) * float64(time.Minute))
	t := WatchTask{
		ID:      taskSeq.Add(1),
		Kind:    TaskKindTrackError,
		Until:   s.clock.Now().Add(d),
		Pattern: re,
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

// Cancel removes the task and reports whether it was live.
func (s *Scheduler) Cancel(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// CheckAndAlert resolves tasks against freshly ingested OCR text. Tasks past
// their deadline resolve as expired without being matched; the rest resolve
// as triggered when text matches. Results are ordered by task id.
func (s *Scheduler) CheckAndAlert(text string) []protocol.TaskDone {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var done []protocol.TaskDone
	for id, t := range s.tasks {
		switch {
		case now.After(t.Until):
			delete(s.tasks, id)
			done = append(done, protocol.TaskDone{ID: id, Status: protocol.TaskExpired})
		case t.Kind == TaskKindTrackError && t.matches(text):
			delete(s.tasks, id)
			done = append(done, protocol.TaskDone{ID: id, Status: protocol.TaskTriggered, Note: noteErrorReappeared})
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].ID < done[j].ID })
	return done
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
