package task

import (
	"context"
	"sync"

	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/orchestrator"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// Runner is the execution surface the manager delegates to. It is satisfied
// by orchestrator.Orchestrator.
type Runner interface {
	RunAgent(ctx context.Context, name string, input map[string]any, sessionID string) (*orchestrator.RunResult, error)
	RunWorkflow(ctx context.Context, name string, input map[string]any, sink workflow.Sink) (*orchestrator.RunResult, error)
	ResumeWorkflow(ctx context.Context, threadID, answer string, sink workflow.Sink) (*orchestrator.RunResult, error)
}

// ManagerOptions configures the task manager.
type ManagerOptions struct {
	Logger logging.Logger
}

// Manager submits agent and workflow runs as background tasks and drives the
// task status state machine as they settle. Submissions return immediately;
// callers poll the store by id.
type Manager struct {
	store  *Store
	runner Runner
	logger logging.Logger

	mu     sync.Mutex
	aborts map[string]context.CancelFunc

	// wg tracks in-flight runs so tests and shutdown can wait for
	// settlement.
	wg sync.WaitGroup
}

// NewManager creates a manager over the given store and runner.
func NewManager(store *Store, runner Runner, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		store:  store,
		runner: runner,
		logger: opts.Logger,
		aborts: make(map[string]context.CancelFunc),
	}
}

// SubmitAgent creates a task for a direct agent run and starts it in the
// background. The returned task is already in the working state.
func (m *Manager) SubmitAgent(name string, input map[string]any, sessionID string) *Task {
	t := m.store.Create(KindAgent, name, input, sessionID)
	t = m.markWorking(t.ID)

	ctx, cancel := context.WithCancel(context.Background())
	m.RegisterAbort(t.ID, cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.UnregisterAbort(t.ID)
		res, err := m.runner.RunAgent(ctx, name, input, sessionID)
		m.settle(t.ID, res, err)
	}()
	return t
}

// SubmitWorkflow creates a task for a workflow run and starts it in the
// background. A run that pauses for user input settles into the
// input-required state instead of completed.
func (m *Manager) SubmitWorkflow(name string, input map[string]any, sink workflow.Sink) *Task {
	t := m.store.Create(KindWorkflow, name, input, "")
	t = m.markWorking(t.ID)

	ctx, cancel := context.WithCancel(context.Background())
	m.RegisterAbort(t.ID, cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.UnregisterAbort(t.ID)
		res, err := m.runner.RunWorkflow(ctx, name, input, sink)
		m.settle(t.ID, res, err)
	}()
	return t
}

// Cancel aborts a non-terminal task. It returns nil when the task is unknown
// or already terminal, leaving the record untouched.
func (m *Manager) Cancel(id string) *Task {
	canceled := false
	t := m.store.Update(id, func(t *Task) bool {
		if t.Status.Terminal() {
			return false
		}
		t.Status = StatusCanceled
		t.InputRequest = nil
		canceled = true
		return true
	})
	if t == nil || !canceled {
		return nil
	}

	m.mu.Lock()
	cancel := m.aborts[id]
	delete(m.aborts, id)
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.logger.Info("task canceled", "task", id)
	return t
}

// Respond answers a paused task's question and resumes the underlying
// execution in the background. It returns nil when the task is not in the
// input-required state.
func (m *Manager) Respond(id, answer string, sink workflow.Sink) *Task {
	var threadID string
	resumed := false
	t := m.store.Update(id, func(t *Task) bool {
		if t.Status != StatusInputRequired || t.InputRequest == nil {
			return false
		}
		threadID = t.InputRequest.ThreadID
		t.Status = StatusWorking
		t.InputRequest = nil
		resumed = true
		return true
	})
	if t == nil || !resumed {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.RegisterAbort(id, cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.UnregisterAbort(id)
		res, err := m.runner.ResumeWorkflow(ctx, threadID, answer, sink)
		m.settle(id, res, err)
	}()
	return t
}

// Track creates a working task without starting any execution. Callers that
// drive their own run use Resolve or Reject to settle it.
func (m *Manager) Track(kind Kind, name string, input map[string]any, sessionID string) *Task {
	t := m.store.Create(kind, name, input, sessionID)
	return m.markWorking(t.ID)
}

// Resolve settles a tracked task as completed.
func (m *Manager) Resolve(id string, output any, metadata map[string]any) *Task {
	return m.store.Update(id, func(t *Task) bool {
		if t.Status != StatusWorking {
			return false
		}
		t.Status = StatusCompleted
		t.Result = &Result{Output: output, Metadata: metadata}
		return true
	})
}

// Reject settles a tracked task as failed.
func (m *Manager) Reject(id string, errMsg string) *Task {
	return m.store.Update(id, func(t *Task) bool {
		if t.Status != StatusWorking {
			return false
		}
		t.Status = StatusFailed
		t.Error = errMsg
		return true
	})
}

// RegisterAbort associates a cancellation function with a task id so Cancel
// can propagate into the in-flight run.
func (m *Manager) RegisterAbort(id string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborts[id] = cancel
}

// UnregisterAbort removes and releases a task's cancellation function.
func (m *Manager) UnregisterAbort(id string) {
	m.mu.Lock()
	cancel := m.aborts[id]
	delete(m.aborts, id)
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until all in-flight runs have settled. Intended for tests and
// shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// markWorking transitions a freshly created task from submitted to working.
func (m *Manager) markWorking(id string) *Task {
	return m.store.Update(id, func(t *Task) bool {
		if t.Status != StatusSubmitted {
			return false
		}
		t.Status = StatusWorking
		return true
	})
}

// settle records a run outcome. A task canceled while the run was in flight
// stays canceled; the outcome is discarded by the status guard. A result
// carrying the interrupted marker pauses the task instead of completing it.
func (m *Manager) settle(id string, res *orchestrator.RunResult, err error) {
	m.store.Update(id, func(t *Task) bool {
		if t.Status != StatusWorking {
			return false
		}
		if err != nil {
			t.Status = StatusFailed
			t.Error = err.Error()
			return true
		}
		if question, threadID, paused := res.Interrupted(); paused {
			t.Status = StatusInputRequired
			t.InputRequest = &InputRequest{
				Question:  question,
				ThreadID:  threadID,
				Timestamp: m.store.opts.Now(),
			}
			return true
		}
		t.Status = StatusCompleted
		t.Result = &Result{Output: res.Output, Metadata: res.Metadata}
		return true
	})
}
