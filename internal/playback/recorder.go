package playback

import (
	"sync"

	"github.com/vincentbai/browsetrace-replay/internal/models"
)

// Recorder receives a description of every mutation the executor applies.
type Recorder interface {
	Record(m models.Mutation)
}

// MemoryRecorder keeps mutations in memory.
type MemoryRecorder struct {
	mu        sync.Mutex
	mutations []models.Mutation
}

func (r *MemoryRecorder) Record(m models.Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, m)
}

func (r *MemoryRecorder) Mutations() []models.Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Mutation, len(r.mutations))
	copy(out, r.mutations)
	return out
}
