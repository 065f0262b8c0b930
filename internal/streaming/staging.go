package streaming

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/world"
)

// stagingEntry holds a load whose texture dependency is not ready yet. It
// owns no GPU resources; removing one disposes nothing. The camera snapshot
// preserves the context needed to retry the load correctly.
type stagingEntry struct {
	key        world.PartitionKey
	data       *world.ChunkData
	camera     mgl64.Vec3
	insertedAt time.Time
}

// stage inserts or refreshes the staging entry for a key. Retries update
// the data and camera snapshot but keep the original insertion time, so
// the TTL measures how long the key has been waiting overall.
func (m *Manager) stage(key world.PartitionKey, data *world.ChunkData, camera mgl64.Vec3) {
	if e, ok := m.staging[key]; ok {
		e.data = data
		e.camera = camera
		return
	}
	m.staging[key] = &stagingEntry{
		key:        key,
		data:       data,
		camera:     camera,
		insertedAt: m.now(),
	}
}

// sweepStaging removes entries older than maxAge, but never one whose key
// still has an active pending load: dropping it would lose the retry
// context while the load is still being driven.
func (m *Manager) sweepStaging(maxAge time.Duration) {
	now := m.now()
	for key, e := range m.staging {
		if now.Sub(e.insertedAt) <= maxAge {
			continue
		}
		if m.sched.PendingLoad(key) {
			continue
		}
		delete(m.staging, key)
	}
}

// StagedCount returns the number of loads currently parked in staging.
func (m *Manager) StagedCount() int { return len(m.staging) }
