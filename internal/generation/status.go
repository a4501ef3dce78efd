// Package generation turns raw Wan task reports into a small internal status model
// and drives the bounded polling loop that waits for a task to finish.
package generation

import (
	"strings"

	"github.com/maauso/wanvideo-api/internal/wan"
)

// State is the internal lifecycle state of a generation task.
type State string

// Task states. Only Pending is non-terminal.
const (
	StatePending   State = "PENDING"   // Submitted, no final answer yet
	StateSucceeded State = "SUCCEEDED" // Video URL available
	StateFailed    State = "FAILED"    // Provider reported failure
	StateTimedOut  State = "TIMED_OUT" // Attempt budget exhausted
	StateError     State = "ERROR"     // Local failure that polling cannot recover from
)

// IsTerminal returns true if the state represents a final state.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateError:
		return true
	default:
		return false
	}
}

// Messages used when the provider gives no explanation.
const (
	DefaultFailureMessage = "Video generation failed"
	TimedOutMessage       = "Video generation timed out"
)

// TaskStatus is the classified outcome of one status check.
// VideoURL is set only for StateSucceeded; Message only for the failure states.
type TaskStatus struct {
	State    State  `json:"status"`
	VideoURL string `json:"url,omitempty"`
	Message  string `json:"error,omitempty"`
}

// Pending returns a non-terminal status.
func Pending() TaskStatus { return TaskStatus{State: StatePending} }

// Succeeded returns a success status for url.
func Succeeded(url string) TaskStatus { return TaskStatus{State: StateSucceeded, VideoURL: url} }

// Failed returns a provider failure with msg, or DefaultFailureMessage when msg is blank.
func Failed(msg string) TaskStatus {
	if msg = strings.TrimSpace(msg); msg == "" {
		msg = DefaultFailureMessage
	}
	return TaskStatus{State: StateFailed, Message: msg}
}

// TimedOut returns the status reported when the attempt budget runs out.
func TimedOut() TaskStatus { return TaskStatus{State: StateTimedOut, Message: TimedOutMessage} }

// Errored returns a terminal local error status.
func Errored(msg string) TaskStatus { return TaskStatus{State: StateError, Message: msg} }

// Classify maps one raw provider report onto the internal model.
//
// A SUCCEEDED report without a video URL is treated as still pending: the
// provider may flip the status before the URL is published.
func Classify(res wan.PollResult) TaskStatus {
	switch res.Status {
	case wan.TaskSucceeded:
		if res.VideoURL != "" {
			return Succeeded(res.VideoURL)
		}
		return Pending()
	case wan.TaskFailed:
		return Failed(res.Message)
	default:
		return Pending()
	}
}
