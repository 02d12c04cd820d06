package interrupt

import (
	"sync"
	"time"

	"github.com/ddalcu/agent-orcha-sub003/logging"
)

// DefaultTTL is how long an unresolved interrupt stays addressable.
const DefaultTTL = time.Hour

// State is the persisted record of one pause. The thread id is globally
// unique and is the sole key used to resume the paused execution.
type State struct {
	ThreadID  string    `json:"threadId"`
	Workflow  string    `json:"workflow"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"createdAt"`
	Resolved  bool      `json:"resolved"`
	Answer    string    `json:"answer,omitempty"`
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger logging.Logger
}

// Manager stores interrupt state in memory, keyed by thread id. Entries
// expire after TTL: expiry is enforced lazily on read and opportunistically
// on every new pause. All state is process-memory-only.
type Manager struct {
	mu     sync.Mutex
	states map[string]State
	ttl    time.Duration
	now    func() time.Time
	logger logging.Logger
}

// NewManager creates a Manager with a 1 hour TTL unless overridden.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		TTL:    DefaultTTL,
		Now:    time.Now,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		states: make(map[string]State),
		ttl:    opts.TTL,
		now:    opts.Now,
		logger: opts.Logger,
	}
}

// Add records a new pause and purges every expired entry while it holds the
// lock. An existing entry for the same thread id is replaced whole.
func (m *Manager) Add(threadID, workflowName, question string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()

	st := State{
		ThreadID:  threadID,
		Workflow:  workflowName,
		Question:  question,
		CreatedAt: m.now(),
	}
	m.states[threadID] = st

	m.logger.Info("interrupt.added", "thread_id", threadID, "workflow", workflowName)

	return st
}

// Get returns the state for a thread id. An entry older than the TTL is
// deleted as a side effect of the read and reported as absent.
func (m *Manager) Get(threadID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[threadID]
	if !ok {
		return State{}, false
	}
	if m.expiredLocked(st) {
		delete(m.states, threadID)
		m.logger.Debug("interrupt.expired", "thread_id", threadID)
		return State{}, false
	}
	return st, true
}

// Resolve marks an existing, unexpired entry resolved and records the answer.
// It returns false if no such entry exists.
func (m *Manager) Resolve(threadID, answer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[threadID]
	if !ok || m.expiredLocked(st) {
		delete(m.states, threadID)
		return false
	}
	st.Resolved = true
	st.Answer = answer
	m.states[threadID] = st
	return true
}

// Remove discards the entry for a thread id, typically after a successful
// resume.
func (m *Manager) Remove(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, threadID)
}

// ByWorkflow returns the unresolved, unexpired entries for a workflow name,
// for dashboard listing.
func (m *Manager) ByWorkflow(workflowName string) []State {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []State
	for _, st := range m.states {
		if st.Workflow != workflowName || st.Resolved || m.expiredLocked(st) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func (m *Manager) expiredLocked(st State) bool {
	return m.now().Sub(st.CreatedAt) > m.ttl
}

func (m *Manager) purgeLocked() {
	for id, st := range m.states {
		if m.expiredLocked(st) {
			delete(m.states, id)
		}
	}
}
