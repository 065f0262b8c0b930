// Package streaming coordinates which chunks enter and leave GPU-resident
// form as the camera moves: priority-ordered load scheduling, the chunk
// lifecycle state machine, and staging of loads whose texture dependencies
// are not ready yet.
package streaming

import (
	"log"
	"sort"

	"github.com/gammazero/deque"

	"terrastream/internal/world"
)

// priorityK is the numerator of the distance-to-priority curve. Priority
// decreases monotonically with distance and never divides by zero.
const priorityK = 1_000_000.0

// PriorityFor converts a squared distance to a load priority.
func PriorityFor(distSq float64) float64 {
	return priorityK / (distSq + 1)
}

type keyState uint8

const (
	stateNone keyState = iota
	statePendingLoad
	stateLoaded
	statePendingUnload
)

type pendingLoad struct {
	key      world.PartitionKey
	priority float64
}

// Scheduler tracks pending loads and unloads per partition key. A key is in
// exactly one of: untracked, pending-load, loaded, pending-unload. Loads
// carry a priority; unloads are drained FIFO since deferring an unload is
// always safe while deferring a nearby load is not.
//
// The scheduler is coordinate-agnostic: it only consumes precomputed
// priority scalars.
type Scheduler struct {
	loads   []pendingLoad
	unloads deque.Deque[world.PartitionKey]
	states  map[world.PartitionKey]keyState

	maxPendingLoads int
	dropped         uint64
}

// NewScheduler creates a scheduler. maxPendingLoads bounds the load queue;
// when a frame queues more, the lowest-priority excess is dropped at sort
// time. Zero means unbounded.
func NewScheduler(maxPendingLoads int) *Scheduler {
	return &Scheduler{
		states:          make(map[world.PartitionKey]keyState),
		maxPendingLoads: maxPendingLoads,
	}
}

// QueueLoad inserts or updates the pending-load priority for a key. Keys
// that are already loaded or pending unload are not re-queued.
func (s *Scheduler) QueueLoad(key world.PartitionKey, priority float64) {
	switch s.states[key] {
	case stateLoaded, statePendingUnload:
		return
	case statePendingLoad:
		for i := range s.loads {
			if s.loads[i].key == key {
				s.loads[i].priority = priority
				return
			}
		}
		// state said pending but the entry is gone; fall through to re-add
	}
	s.loads = append(s.loads, pendingLoad{key: key, priority: priority})
	s.states[key] = statePendingLoad
}

// QueueUnload marks a key for teardown. Idempotent. A key still waiting in
// the load queue is simply cancelled: nothing is resident to tear down.
func (s *Scheduler) QueueUnload(key world.PartitionKey) {
	switch s.states[key] {
	case statePendingUnload:
		return
	case statePendingLoad:
		s.removeLoad(key)
		delete(s.states, key)
		return
	case stateNone:
		return
	}
	s.unloads.PushBack(key)
	s.states[key] = statePendingUnload
}

// SortByPriority orders the pending loads descending by priority and
// enforces the queue cap. Call once per frame after all QueueLoad calls,
// before extraction.
func (s *Scheduler) SortByPriority() {
	sort.SliceStable(s.loads, func(i, j int) bool {
		return s.loads[i].priority > s.loads[j].priority
	})

	if s.maxPendingLoads > 0 && len(s.loads) > s.maxPendingLoads {
		excess := s.loads[s.maxPendingLoads:]
		for _, pl := range excess {
			delete(s.states, pl.key)
		}
		s.dropped += uint64(len(excess))
		log.Printf("streaming: load queue over cap, dropped %d lowest-priority loads", len(excess))
		s.loads = s.loads[:s.maxPendingLoads]
	}
}

// NextLoads removes and returns up to n highest-priority pending loads.
// Extracted keys leave the pending state; the caller re-queues them via the
// next visibility diff if the load does not complete.
func (s *Scheduler) NextLoads(n int) []world.PartitionKey {
	if n > len(s.loads) {
		n = len(s.loads)
	}
	if n <= 0 {
		return nil
	}
	out := make([]world.PartitionKey, 0, n)
	for _, pl := range s.loads[:n] {
		delete(s.states, pl.key)
		out = append(out, pl.key)
	}
	s.loads = s.loads[:copy(s.loads, s.loads[n:])]
	return out
}

// NextUnloads removes and returns up to n pending unloads in arrival order.
func (s *Scheduler) NextUnloads(n int) []world.PartitionKey {
	if n > s.unloads.Len() {
		n = s.unloads.Len()
	}
	if n <= 0 {
		return nil
	}
	out := make([]world.PartitionKey, 0, n)
	for i := 0; i < n; i++ {
		key := s.unloads.PopFront()
		delete(s.states, key)
		out = append(out, key)
	}
	return out
}

// NoteLoaded records that a key became resident.
func (s *Scheduler) NoteLoaded(key world.PartitionKey) {
	s.states[key] = stateLoaded
}

// NoteUnloaded records that a key left residency.
func (s *Scheduler) NoteUnloaded(key world.PartitionKey) {
	delete(s.states, key)
}

// PendingLoad reports whether a key is waiting in the load queue.
func (s *Scheduler) PendingLoad(key world.PartitionKey) bool {
	return s.states[key] == statePendingLoad
}

// PendingUnload reports whether a key is waiting in the unload queue.
func (s *Scheduler) PendingUnload(key world.PartitionKey) bool {
	return s.states[key] == statePendingUnload
}

// PendingLoads returns the load queue depth.
func (s *Scheduler) PendingLoads() int { return len(s.loads) }

// PendingUnloads returns the unload queue depth.
func (s *Scheduler) PendingUnloads() int { return s.unloads.Len() }

// Dropped returns the total number of loads dropped by the queue cap.
func (s *Scheduler) Dropped() uint64 { return s.dropped }

// Clear drops all pending state. Loaded keys keep their state: clearing the
// queues must have no side effect on resident chunks.
func (s *Scheduler) Clear() {
	for _, pl := range s.loads {
		delete(s.states, pl.key)
	}
	s.loads = s.loads[:0]
	for s.unloads.Len() > 0 {
		key := s.unloads.PopFront()
		if s.states[key] == statePendingUnload {
			// the chunk is still resident, only the teardown request is dropped
			s.states[key] = stateLoaded
		}
	}
}

func (s *Scheduler) removeLoad(key world.PartitionKey) {
	for i := range s.loads {
		if s.loads[i].key == key {
			s.loads = append(s.loads[:i], s.loads[i+1:]...)
			return
		}
	}
}
