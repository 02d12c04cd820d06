package task

import (
	"sort"
	"sync"
	"time"

	"github.com/ddalcu/agent-orcha-sub003/internal/util"
	"github.com/ddalcu/agent-orcha-sub003/logging"
)

const (
	// DefaultMaxTasks bounds the store; exceeding it evicts the oldest
	// terminal task, or the oldest task outright when none is terminal.
	DefaultMaxTasks = 1000

	// DefaultTTL is how long terminal tasks are retained.
	DefaultTTL = 24 * time.Hour

	// DefaultCleanupInterval is the period of the background sweep.
	DefaultCleanupInterval = 10 * time.Minute
)

// StoreOptions configures the task store.
type StoreOptions struct {
	MaxTasks        int
	TTL             time.Duration
	CleanupInterval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time

	Logger logging.Logger
}

// Store owns all task records. Records are mutated only through Update, which
// refreshes UpdatedAt; reads return clones so callers never observe later
// mutations.
type Store struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	opts   StoreOptions
	stop   chan struct{}
	doneWg sync.WaitGroup
	logger logging.Logger
}

// NewStore creates a task store. Call Start to enable the periodic cleanup
// sweep, and Close on shutdown.
func NewStore(optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{
		MaxTasks:        DefaultMaxTasks,
		TTL:             DefaultTTL,
		CleanupInterval: DefaultCleanupInterval,
		Now:             time.Now,
		Logger:          logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTasks <= 0 {
		opts.MaxTasks = DefaultMaxTasks
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		tasks:  make(map[string]*Task),
		opts:   opts,
		stop:   make(chan struct{}),
		logger: opts.Logger,
	}
}

// Create allocates a new task in the submitted state. The store is trimmed
// first if the new record would exceed the configured maximum.
func (s *Store) Create(kind Kind, name string, input map[string]any, sessionID string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.tasks) >= s.opts.MaxTasks {
		s.evictOldestLocked()
	}

	now := s.opts.Now()
	t := &Task{
		ID:        util.NewID(),
		Kind:      kind,
		Name:      name,
		Status:    StatusSubmitted,
		Input:     input,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	return t.clone()
}

// Get returns a copy of the task, or false when unknown.
func (s *Store) Get(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// Update applies fn to the task under the store lock. When fn returns true
// the mutation is kept and UpdatedAt refreshed; false leaves the record
// untouched. The updated copy is returned, or nil when the id is unknown.
func (s *Store) Update(id string, fn func(t *Task) bool) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	if !fn(t) {
		return t.clone()
	}
	t.UpdatedAt = s.opts.Now()
	if t.Status.Terminal() && t.CompletedAt == nil {
		done := t.UpdatedAt
		t.CompletedAt = &done
	}
	return t.clone()
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status
	Kind   Kind
	Name   string
}

// List returns matching tasks sorted newest-first by creation time.
func (s *Store) List(f Filter) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.Name != "" && t.Name != f.Name {
			continue
		}
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Cleanup removes terminal tasks older than the TTL and returns how many
// were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.opts.Now().Add(-s.opts.TTL)
	removed := 0
	for id, t := range s.tasks {
		if t.Status.Terminal() && t.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("task cleanup removed expired tasks", "count", removed)
	}
	return removed
}

// Start launches the periodic cleanup sweep. Safe to skip in tests; Cleanup
// can be driven directly.
func (s *Store) Start() {
	if s.opts.CleanupInterval <= 0 {
		return
	}
	s.doneWg.Add(1)
	go func() {
		defer s.doneWg.Done()
		ticker := time.NewTicker(s.opts.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup sweep and waits for it to exit.
func (s *Store) Close() {
	close(s.stop)
	s.doneWg.Wait()
}

// evictOldestLocked drops the oldest terminal task, or the oldest task of
// any status when none is terminal. Caller holds s.mu.
func (s *Store) evictOldestLocked() {
	var victim *Task
	terminalFound := false
	for _, t := range s.tasks {
		isTerminal := t.Status.Terminal()
		switch {
		case victim == nil:
			victim, terminalFound = t, isTerminal
		case isTerminal && !terminalFound:
			victim, terminalFound = t, true
		case isTerminal == terminalFound && t.CreatedAt.Before(victim.CreatedAt):
			victim = t
		}
	}
	if victim == nil {
		return
	}
	s.logger.Debug("evicting task to respect store limit", "task", victim.ID, "status", string(victim.Status))
	delete(s.tasks, victim.ID)
}
