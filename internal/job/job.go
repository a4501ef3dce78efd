// Package job tracks server-side video generation sessions: the submitted Wan
// task, its classified status and the polling progress, plus the repositories
// that persist them.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/wanvideo-api/internal/generation"
	"github.com/maauso/wanvideo-api/internal/job/id"
	"github.com/maauso/wanvideo-api/internal/wan"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// A session starts PENDING and moves to exactly one terminal state.
var validTransitions = map[generation.State][]generation.State{
	generation.StatePending: {
		generation.StateSucceeded,
		generation.StateFailed,
		generation.StateTimedOut,
		generation.StateError,
	},
	generation.StateSucceeded: {},
	generation.StateFailed:    {},
	generation.StateTimedOut:  {},
	generation.StateError:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to generation.State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is one generation session.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this session.
	ID string
	// UserID is the opaque owner id passed through from the request.
	UserID string

	// Request fields, kept for history views.
	Mode           wan.Mode
	Prompt         string
	NegativePrompt string
	Resolution     wan.Resolution
	AspectRatio    wan.AspectRatio
	ImageURL       string

	// Handle identifies the provider task. Set once at creation.
	Handle wan.TaskHandle

	// Status is the latest classified state.
	Status generation.State
	// Progress is the display percentage (0-100).
	Progress int
	// Attempts is the number of polls made so far.
	Attempts int
	// VideoURL is the provider URL of the finished video.
	VideoURL string
	// Error explains a FAILED, TIMED_OUT or ERROR session.
	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// New creates a PENDING session for req with a generated ID.
func New(req wan.GenerationRequest, handle wan.TaskHandle) *Job {
	j := NewWithID(id.Generate())
	j.UserID = req.UserID
	j.Mode = req.Mode
	j.Prompt = req.Prompt
	j.NegativePrompt = req.NegativePrompt
	j.Resolution = req.Resolution
	j.AspectRatio = req.AspectRatio
	j.ImageURL = req.ImageURL
	j.Handle = handle
	return j
}

// NewWithID creates an empty PENDING session with the given ID.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    generation.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the session state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(state generation.State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(state)
}

func (j *Job) transitionLocked(state generation.State) error {
	if !canTransition(j.Status, state) {
		return ErrInvalidTransition
	}
	j.Status = state
	j.UpdatedAt = time.Now()
	if state.IsTerminal() {
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Apply records a classified status. Pending only touches UpdatedAt; terminal
// statuses move the session to its final state and copy the URL or message.
func (j *Job) Apply(st generation.TaskStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !st.State.IsTerminal() {
		if j.Status.IsTerminal() {
			return ErrInvalidTransition
		}
		j.UpdatedAt = time.Now()
		return nil
	}

	if err := j.transitionLocked(st.State); err != nil {
		return err
	}
	switch st.State {
	case generation.StateSucceeded:
		j.VideoURL = st.VideoURL
		j.Progress = 100
	default:
		j.Error = st.Message
	}
	return nil
}

// RecordAttempt stores the poll count and the derived progress.
func (j *Job) RecordAttempt(attempt, maxAttempts int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts = attempt
	if j.Status == generation.StatePending {
		j.Progress = generation.Progress(attempt, maxAttempts)
	}
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current state (thread-safe).
func (j *Job) GetStatus() generation.State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the session is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status.IsTerminal()
}

// TaskStatus returns the session state in the classified status shape.
func (j *Job) TaskStatus() generation.TaskStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return generation.TaskStatus{State: j.Status, VideoURL: j.VideoURL, Message: j.Error}
}

// Clone creates a copy of the session for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:             j.ID,
		UserID:         j.UserID,
		Mode:           j.Mode,
		Prompt:         j.Prompt,
		NegativePrompt: j.NegativePrompt,
		Resolution:     j.Resolution,
		AspectRatio:    j.AspectRatio,
		ImageURL:       j.ImageURL,
		Handle:         j.Handle,
		Status:         j.Status,
		Progress:       j.Progress,
		Attempts:       j.Attempts,
		VideoURL:       j.VideoURL,
		Error:          j.Error,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		CompletedAt:    j.CompletedAt,
	}
}
