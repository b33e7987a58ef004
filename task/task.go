package task

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheetmcp/sheetcore/toolerr"
)

// Status is a task's position in its state machine. working and
// input_required are the only non-terminal states.
type Status string

const (
	Working       Status = "working"
	InputRequired Status = "input_required"
	Completed     Status = "completed"
	Failed        Status = "failed"
	Cancelled     Status = "cancelled"
)

func (s Status) terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Record is the externally-visible snapshot of a task. The TaskStore
// exclusively owns task state; callers hold a Record copy or the task ID,
// never a pointer into the store.
type Record struct {
	TaskID             string
	SessionID          string
	Status             Status
	CreatedAt          time.Time
	TTL                time.Duration
	ResultRef          string
	CancellationReason string
}

type entry struct {
	mu     sync.Mutex
	rec    Record
	cancel chan struct{}
	once   sync.Once
}

// Config configures a Store.
type Config struct {
	TTL      time.Duration // default 1h
	PageSize int           // default 50
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	return c
}

// Store is a per-task-mutex task store with a concurrent-safe index keyed
// by creation order, so ListTasks can page newest-first without scanning
// the whole map under lock.
type Store struct {
	cfg Config

	mu      sync.Mutex
	tasks   map[string]*entry
	order   *list.List // front = newest; elements hold taskId strings
	byOrder map[string]*list.Element
}

// New constructs an empty Store.
func New(cfg Config) *Store {
	cfg = cfg.withDefaults()
	return &Store{
		cfg:     cfg,
		tasks:   make(map[string]*entry),
		order:   list.New(),
		byOrder: make(map[string]*list.Element),
	}
}

// CreateTask starts a new task in the working state and returns its record.
func (s *Store) CreateTask(sessionID string) Record {
	id := uuid.NewString()
	e := &entry{
		rec: Record{
			TaskID:    id,
			SessionID: sessionID,
			Status:    Working,
			CreatedAt: time.Now(),
			TTL:       s.cfg.TTL,
		},
		cancel: make(chan struct{}),
	}

	s.mu.Lock()
	s.tasks[id] = e
	s.byOrder[id] = s.order.PushFront(id)
	s.mu.Unlock()

	return e.rec
}

func (s *Store) get(taskID string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return nil, toolerr.Newf(toolerr.NotFound, "task %s not found", taskID)
	}
	return e, nil
}

// RequireInput transitions a working task to input_required.
func (s *Store) RequireInput(taskID string) error {
	return s.transition(taskID, InputRequired)
}

// Resume transitions an input_required task back to working.
func (s *Store) Resume(taskID string) error {
	return s.transition(taskID, Working)
}

// Complete marks a task completed with a reference to its result.
func (s *Store) Complete(taskID, resultRef string) error {
	e, err := s.get(taskID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Status.terminal() {
		return toolerr.Newf(toolerr.Conflict, "task %s already terminal (%s)", taskID, e.rec.Status)
	}
	e.rec.Status = Completed
	e.rec.ResultRef = resultRef
	return nil
}

// Fail marks a task failed.
func (s *Store) Fail(taskID, reason string) error {
	e, err := s.get(taskID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Status.terminal() {
		return toolerr.Newf(toolerr.Conflict, "task %s already terminal (%s)", taskID, e.rec.Status)
	}
	e.rec.Status = Failed
	e.rec.CancellationReason = reason
	return nil
}

// CancelTask marks a task cancelled and closes its cancellation signal, so
// any handler blocked on IsTaskCancelled or selecting on Done observes it
// immediately. Cancelling an already-terminal task is a no-op, not an
// error — cancellation races a task's own completion by design.
func (s *Store) CancelTask(taskID, reason string) error {
	e, err := s.get(taskID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Status.terminal() {
		return nil
	}
	e.rec.Status = Cancelled
	e.rec.CancellationReason = reason
	e.once.Do(func() { close(e.cancel) })
	return nil
}

func (s *Store) transition(taskID string, to Status) error {
	e, err := s.get(taskID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Status.terminal() {
		return toolerr.Newf(toolerr.Conflict, "task %s already terminal (%s)", taskID, e.rec.Status)
	}
	e.rec.Status = to
	return nil
}

// IsTaskCancelled reports whether taskID has been cancelled. Handlers that
// don't want to block can poll this; handlers that do can select on Done.
func (s *Store) IsTaskCancelled(taskID string) bool {
	e, err := s.get(taskID)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Status == Cancelled
}

// Done returns a channel closed when taskID is cancelled. A task that does
// not exist returns a closed channel, matching IsTaskCancelled's behavior
// of treating unknown tasks as not actionable.
func (s *Store) Done(taskID string) <-chan struct{} {
	e, err := s.get(taskID)
	if err != nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.cancel
}

// Get returns the current record for taskID.
func (s *Store) Get(taskID string) (Record, error) {
	e, err := s.get(taskID)
	if err != nil {
		return Record{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec, nil
}

// Page is one cursor-paged slice of ListTasks, newest-first.
type Page struct {
	Tasks      []Record
	NextCursor string
}

// ListTasks returns up to PageSize tasks for sessionID newest-first,
// starting after cursor (the empty cursor starts at the newest task).
func (s *Store) ListTasks(sessionID, cursor string) Page {
	s.mu.Lock()
	start := s.order.Front()
	if cursor != "" {
		if el, ok := s.byOrder[cursor]; ok {
			start = el.Next()
		}
	}

	page := Page{}
	for el := start; el != nil && len(page.Tasks) < s.cfg.PageSize; el = el.Next() {
		e := s.tasks[el.Value.(string)]
		if e == nil {
			continue
		}
		e.mu.Lock()
		rec := e.rec
		e.mu.Unlock()
		if sessionID != "" && rec.SessionID != sessionID {
			continue
		}
		page.Tasks = append(page.Tasks, rec)
	}
	s.mu.Unlock()

	if len(page.Tasks) == s.cfg.PageSize {
		page.NextCursor = page.Tasks[len(page.Tasks)-1].TaskID
	}
	return page
}

// GC removes tasks whose TTL has elapsed since creation, regardless of
// status — a single sweep invoked on a shared timer rather than one timer
// per task.
func (s *Store) GC(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		id := el.Value.(string)
		e := s.tasks[id]
		if e == nil {
			el = prev
			continue
		}
		e.mu.Lock()
		expired := now.Sub(e.rec.CreatedAt) > e.rec.TTL
		e.mu.Unlock()
		if expired {
			delete(s.tasks, id)
			delete(s.byOrder, id)
			s.order.Remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// RunGC runs GC on interval until stop is closed, matching the single-timer
// pattern used by snapshot.Store.RunGC.
func (s *Store) RunGC(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.GC(now)
		}
	}
}
