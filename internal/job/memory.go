package job

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository with the same
// expiry and per-user index semantics as RedisRepository. Sessions are lost on restart.
type MemoryRepository struct {
	mu        sync.RWMutex
	jobs      map[string]memoryEntry
	byUser    map[string]map[string]struct{}
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// sweepInterval bounds how often Save scans for expired sessions.
const sweepInterval = time.Minute

type memoryEntry struct {
	job       *Job
	expiresAt time.Time // zero means never
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMemoryTTL expires sessions ttl after their last save. Zero disables expiry.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(r *MemoryRepository) {
		r.ttl = ttl
	}
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		jobs:   make(map[string]memoryEntry),
		byUser: make(map[string]map[string]struct{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save stores a clone of job and refreshes its expiry. It also evicts
// expired sessions, at most once per sweepInterval.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	snapshot := job.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	entry := memoryEntry{job: snapshot}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.jobs[snapshot.ID] = entry

	if snapshot.UserID != "" {
		ids, ok := r.byUser[snapshot.UserID]
		if !ok {
			ids = make(map[string]struct{})
			r.byUser[snapshot.UserID] = ids
		}
		ids[snapshot.ID] = struct{}{}
	}
	return nil
}

// FindByID returns a clone of the stored session.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.lookupLocked(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return entry.job.Clone(), nil
}

// ListByUser returns clones of the user's live sessions, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Job, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		if entry, ok := r.lookupLocked(id); ok {
			result = append(result, entry.job.Clone())
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// Delete removes a session and its index entry.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	r.removeLocked(id, entry)
	if r.expired(entry) {
		return ErrJobNotFound
	}
	return nil
}

// sweepLocked evicts expired sessions. Callers hold the write lock.
func (r *MemoryRepository) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	now := r.now()
	if now.Before(r.nextSweep) {
		return
	}
	r.nextSweep = now.Add(sweepInterval)
	for id, entry := range r.jobs {
		if r.expired(entry) {
			r.removeLocked(id, entry)
		}
	}
}

func (r *MemoryRepository) removeLocked(id string, entry memoryEntry) {
	delete(r.jobs, id)
	if ids := r.byUser[entry.job.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byUser, entry.job.UserID)
		}
	}
}

func (r *MemoryRepository) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt)
}

// lookupLocked treats expired entries as missing. Callers hold r.mu.
func (r *MemoryRepository) lookupLocked(id string) (memoryEntry, bool) {
	entry, ok := r.jobs[id]
	if !ok || r.expired(entry) {
		return memoryEntry{}, false
	}
	return entry, true
}
