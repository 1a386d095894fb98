// Package query runs backend work off the rendering goroutine and
// delivers outcomes through a single inbox. Overlapping submissions to
// the same logical slot supersede each other: the newest token wins and
// older results are discarded unexamined, whatever order they complete
// in. This is the cancellation mechanism; read queries have no side
// effects worth aborting mid-flight.
package query

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Slot names one logical request: at most one submission per slot is
// current at a time.
type Slot int

const (
	SlotConnect Slot = iota
	SlotDatabases
	SlotTables
	SlotRecords
	SlotColumns
	SlotCount
	SlotExec
)

// Token correlates a submission with its eventual result.
type Token string

// Result is one delivered outcome. Value is the payload the submitted
// work returned; Err is already normalized by the db layer.
type Result struct {
	Token Token
	Slot  Slot
	Value any
	Err   error
}

// Orchestrator owns the worker/inbox machinery. The zero value is not
// usable; call New.
type Orchestrator struct {
	mu      sync.Mutex
	current map[Slot]Token
	inbox   chan Result
}

// New creates an orchestrator. The inbox is buffered so workers never
// block on delivery under realistic supersession rates.
func New() *Orchestrator {
	return &Orchestrator{
		current: make(map[Slot]Token),
		inbox:   make(chan Result, 64),
	}
}

// Submit enqueues work for a slot and returns immediately. The returned
// token supersedes any earlier token for the same slot.
func (o *Orchestrator) Submit(slot Slot, work func(ctx context.Context) (any, error)) Token {
	token := Token(uuid.NewString())

	o.mu.Lock()
	o.current[slot] = token
	o.mu.Unlock()

	go func() {
		value, err := work(context.Background())
		o.inbox <- Result{Token: token, Slot: slot, Value: value, Err: err}
	}()

	return token
}

// Next blocks until a current (non-superseded) result arrives. Stale
// results are drained and dropped on the way.
func (o *Orchestrator) Next() Result {
	for {
		r := <-o.inbox
		if !o.stale(r) {
			return r
		}
	}
}

// Poll returns the next current result without blocking. Stale results
// encountered first are dropped.
func (o *Orchestrator) Poll() (Result, bool) {
	for {
		select {
		case r := <-o.inbox:
			if !o.stale(r) {
				return r, true
			}
		default:
			return Result{}, false
		}
	}
}

// Invalidate marks the slot's in-flight submission, if any, stale.
func (o *Orchestrator) Invalidate(slot Slot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.current, slot)
}

// InvalidateAll marks every in-flight submission stale. Called when the
// active pool is switched so nothing from the old backend lands.
func (o *Orchestrator) InvalidateAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = make(map[Slot]Token)
}

func (o *Orchestrator) stale(r Result) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current[r.Slot] != r.Token
}
