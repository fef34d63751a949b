// Package operations is the process-wide live registry of long-running work.
// State is ephemeral: the registry starts empty after a restart.
package operations

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRetrying   = "retrying"
)

// Event types pushed to subscribers
const (
	EventCreated   = "created"
	EventUpdated   = "updated"
	EventRemoved   = "removed"
	EventHeartbeat = "heartbeat"
)

// Progress tracks how far along an operation is.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// OperationError captures a failure or retry state.
type OperationError struct {
	Message    string `json:"message"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Operation is one observable unit of long-running work.
type Operation struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Status      string                 `json:"status"`
	Progress    *Progress              `json:"progress,omitempty"`
	Error       *OperationError        `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
}

// Event is one mutation pushed to subscribers. Delivery is best-effort with
// no replay buffer; slow subscribers lose events rather than block the hub.
type Event struct {
	Type      string     `json:"type"`
	Operation *Operation `json:"operation,omitempty"`
	At        time.Time  `json:"at"`
}

// CreateOpts are the optional fields of a new operation.
type CreateOpts struct {
	Description string
	Total       int
	Metadata    map[string]interface{}
}

const subscriberBuffer = 64

// Hub is the operation registry plus its subscriber fan-out.
type Hub struct {
	mu   sync.RWMutex
	ops  map[string]*Operation
	subs map[string]chan Event

	heartbeatEvery time.Duration
	terminalTTL    time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once

	// OnCount, when set before first use, observes the live operation count
	// after every create and remove.
	OnCount func(n int)
}

func NewHub() *Hub {
	return &Hub{
		ops:            make(map[string]*Operation),
		subs:           make(map[string]chan Event),
		heartbeatEvery: 30 * time.Second,
		terminalTTL:    time.Minute,
		stopCh:         make(chan struct{}),
	}
}

// Start launches the heartbeat loop so subscribers can detect a dead connection.
func (h *Hub) Start() {
	go func() {
		ticker := time.NewTicker(h.heartbeatEvery)
		defer ticker.Stop()
		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.broadcast(Event{Type: EventHeartbeat, At: time.Now()})
			}
		}
	}()
}

// Stop halts the heartbeat loop and closes all subscriber channels.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// Subscribe registers a new observer. The returned snapshot is the point-in-
// time state; subsequent mutations arrive on the channel. The unsubscribe
// func is idempotent and closes the channel.
func (h *Hub) Subscribe() ([]Operation, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := make([]Operation, 0, len(h.ops))
	for _, op := range h.ops {
		snapshot = append(snapshot, *snapshotOf(op))
	}

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return snapshot, ch, unsubscribe
}

// Create registers a new pending operation and returns its id.
func (h *Hub) Create(opType, name string, opts CreateOpts) string {
	op := &Operation{
		ID:          uuid.NewString(),
		Type:        opType,
		Name:        name,
		Description: opts.Description,
		Status:      StatusPending,
		Metadata:    opts.Metadata,
		StartedAt:   time.Now(),
	}
	if opts.Total > 0 {
		op.Progress = &Progress{Total: opts.Total}
	}

	h.mu.Lock()
	h.ops[op.ID] = op
	n := len(h.ops)
	h.mu.Unlock()

	if h.OnCount != nil {
		h.OnCount(n)
	}
	h.broadcast(Event{Type: EventCreated, Operation: snapshotOf(op), At: time.Now()})
	return op.ID
}

// UpdateProgress records progress and moves the operation to in_progress.
// Pass total < 0 to keep the previous total.
func (h *Hub) UpdateProgress(id string, current, total int) {
	h.mu.Lock()
	op, ok := h.ops[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	if op.Progress == nil {
		op.Progress = &Progress{}
	}
	op.Progress.Current = current
	if total >= 0 {
		op.Progress.Total = total
	}
	if op.Progress.Total > 0 {
		op.Progress.Percentage = int(float64(op.Progress.Current) / float64(op.Progress.Total) * 100)
		if op.Progress.Percentage > 100 {
			op.Progress.Percentage = 100
		}
	}
	if op.Status == StatusPending || op.Status == StatusRetrying {
		op.Status = StatusInProgress
		op.Error = nil
	}
	snap := snapshotOf(op)
	h.mu.Unlock()

	h.broadcast(Event{Type: EventUpdated, Operation: snap, At: time.Now()})
}

// SetMetadata merges keys into the operation's metadata and emits an update.
func (h *Hub) SetMetadata(id string, metadata map[string]interface{}) {
	h.mu.Lock()
	op, ok := h.ops[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	if op.Metadata == nil {
		op.Metadata = make(map[string]interface{})
	}
	for k, v := range metadata {
		op.Metadata[k] = v
	}
	snap := snapshotOf(op)
	h.mu.Unlock()

	h.broadcast(Event{Type: EventUpdated, Operation: snap, At: time.Now()})
}

// MarkRetrying records a retry-in-progress state with its attempt counters.
func (h *Hub) MarkRetrying(id, message string, retryCount, maxRetries int) {
	h.mu.Lock()
	op, ok := h.ops[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	op.Status = StatusRetrying
	op.Error = &OperationError{Message: message, RetryCount: retryCount, MaxRetries: maxRetries}
	snap := snapshotOf(op)
	h.mu.Unlock()

	h.broadcast(Event{Type: EventUpdated, Operation: snap, At: time.Now()})
}

// Complete marks the operation terminal-successful.
func (h *Hub) Complete(id string) {
	h.finish(id, StatusCompleted, nil)
}

// Fail marks the operation terminal-failed with the given message.
func (h *Hub) Fail(id, message string) {
	h.finish(id, StatusFailed, &OperationError{Message: message})
}

func (h *Hub) finish(id, status string, opErr *OperationError) {
	h.mu.Lock()
	op, ok := h.ops[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	op.Status = status
	if opErr != nil {
		op.Error = opErr
	}
	if status == StatusCompleted && op.Progress != nil {
		op.Progress.Current = op.Progress.Total
		op.Progress.Percentage = 100
	}
	snap := snapshotOf(op)
	h.mu.Unlock()

	h.broadcast(Event{Type: EventUpdated, Operation: snap, At: time.Now()})

	// Terminal operations linger briefly for late-attaching observers,
	// then are pruned.
	if h.terminalTTL > 0 {
		time.AfterFunc(h.terminalTTL, func() { h.Remove(id) })
	}
}

// Remove deletes the operation and notifies subscribers.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	op, ok := h.ops[id]
	if ok {
		delete(h.ops, id)
	}
	n := len(h.ops)
	h.mu.Unlock()

	if ok {
		if h.OnCount != nil {
			h.OnCount(n)
		}
		h.broadcast(Event{Type: EventRemoved, Operation: snapshotOf(op), At: time.Now()})
	}
}

// GetAll returns a point-in-time snapshot of every live operation.
func (h *Hub) GetAll() []Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Operation, 0, len(h.ops))
	for _, op := range h.ops {
		out = append(out, *snapshotOf(op))
	}
	return out
}

// Get returns a snapshot of one operation.
func (h *Hub) Get(id string) (*Operation, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	op, ok := h.ops[id]
	if !ok {
		return nil, false
	}
	return snapshotOf(op), true
}

func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not draining; drop rather than block the hub.
			log.Printf("[Operations] Dropping %s event for slow subscriber %s", ev.Type, id)
		}
	}
}

func snapshotOf(op *Operation) *Operation {
	cp := *op
	if op.Progress != nil {
		p := *op.Progress
		cp.Progress = &p
	}
	if op.Error != nil {
		e := *op.Error
		cp.Error = &e
	}
	if op.Metadata != nil {
		m := make(map[string]interface{}, len(op.Metadata))
		for k, v := range op.Metadata {
			m[k] = v
		}
		cp.Metadata = m
	}
	return &cp
}
