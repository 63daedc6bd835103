// Package store holds the shared, preallocated result arrays written by
// solver workers, and the on-disk recorder for failed solves.
package store

import (
	"fmt"
	"sync/atomic"

	"github.com/lox/bodegabrawl/internal/game"
)

// WorkerState is a worker's lifecycle stage.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerBlocked
	WorkerCompleted
	WorkerFailed
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerBlocked:
		return "blocked"
	case WorkerCompleted:
		return "completed"
	case WorkerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Results holds one policy, value and completion flag per state index plus
// one status slot per worker. All arrays are sized once in New.
//
// Each index has exactly one writer. Publish writes the policy and value
// and then sets the completion flag with an atomic store; readers must see
// Complete(i) return true before calling Value or Policy for i.
type Results struct {
	policy    [][game.NumActions]float32
	value     []float64
	complete  []atomic.Bool
	completed atomic.Int64
	status    []atomic.Int32
}

// New allocates storage for n states and w workers.
func New(n, w int) *Results {
	return &Results{
		policy:   make([][game.NumActions]float32, n),
		value:    make([]float64, n),
		complete: make([]atomic.Bool, n),
		status:   make([]atomic.Int32, w),
	}
}

// Len returns the number of state slots.
func (r *Results) Len() int {
	return len(r.value)
}

// Workers returns the number of worker status slots.
func (r *Results) Workers() int {
	return len(r.status)
}

// Complete reports whether index i has been published.
func (r *Results) Complete(i int) bool {
	return r.complete[i].Load()
}

// Value returns the published value for i.
func (r *Results) Value(i int) float64 {
	return r.value[i]
}

// Policy returns a copy of the published nine-slot policy for i.
func (r *Results) Policy(i int) [game.NumActions]float64 {
	var out [game.NumActions]float64
	for j, p := range r.policy[i] {
		out[j] = float64(p)
	}
	return out
}

// Publish stores the result for i and marks it complete. Publishing the
// same index twice breaks the single-writer contract and panics.
func (r *Results) Publish(i int, policy [game.NumActions]float64, value float64) {
	if r.complete[i].Load() {
		panic(fmt.Sprintf("store: index %d published twice", i))
	}
	row := &r.policy[i]
	for j, p := range policy {
		row[j] = float32(p)
	}
	r.value[i] = value
	r.complete[i].Store(true)
	r.completed.Add(1)
}

// Completed returns how many indices have been published.
func (r *Results) Completed() int {
	return int(r.completed.Load())
}

// Done reports whether every index has been published.
func (r *Results) Done() bool {
	return r.Completed() == r.Len()
}

// SetStatus records worker w's lifecycle stage.
func (r *Results) SetStatus(w int, s WorkerState) {
	r.status[w].Store(int32(s))
}

// Status returns worker w's lifecycle stage.
func (r *Results) Status(w int) WorkerState {
	return WorkerState(r.status[w].Load())
}

// FailedWorkers returns the ids of every worker in the failed state.
func (r *Results) FailedWorkers() []int {
	var ids []int
	for w := range r.status {
		if r.Status(w) == WorkerFailed {
			ids = append(ids, w)
		}
	}
	return ids
}

// Arrays returns the backing policy and value arrays without copying them.
// Callers take ownership once Done reports true; nothing writes to them
// after that.
func (r *Results) Arrays() ([][game.NumActions]float32, []float64) {
	return r.policy, r.value
}
