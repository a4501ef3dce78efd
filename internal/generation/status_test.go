package generation

import (
	"testing"

	"github.com/maauso/wanvideo-api/internal/wan"
	"github.com/stretchr/testify/assert"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"pending not terminal", StatePending, false},
		{"succeeded is terminal", StateSucceeded, true},
		{"failed is terminal", StateFailed, true},
		{"timed_out is terminal", StateTimedOut, true},
		{"error is terminal", StateError, true},
		{"unknown not terminal", State("RUNNING"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   wan.PollResult
		want TaskStatus
	}{
		{
			name: "succeeded with url",
			in:   wan.PollResult{Status: wan.TaskSucceeded, VideoURL: "https://cdn/v.mp4"},
			want: TaskStatus{State: StateSucceeded, VideoURL: "https://cdn/v.mp4"},
		},
		{
			name: "succeeded without url stays pending",
			in:   wan.PollResult{Status: wan.TaskSucceeded},
			want: TaskStatus{State: StatePending},
		},
		{
			name: "failed with provider message",
			in:   wan.PollResult{Status: wan.TaskFailed, Message: "content moderation"},
			want: TaskStatus{State: StateFailed, Message: "content moderation"},
		},
		{
			name: "failed without message",
			in:   wan.PollResult{Status: wan.TaskFailed},
			want: TaskStatus{State: StateFailed, Message: DefaultFailureMessage},
		},
		{"pending", wan.PollResult{Status: wan.TaskPending}, Pending()},
		{"running", wan.PollResult{Status: wan.TaskRunning}, Pending()},
		{"canceled", wan.PollResult{Status: wan.TaskCanceled}, Pending()},
		{"unknown", wan.PollResult{Status: "WHATEVER"}, Pending()},
		{"empty", wan.PollResult{}, Pending()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestTerminalStatusesCarryExplanation(t *testing.T) {
	for _, st := range []TaskStatus{Failed(""), Failed("  "), TimedOut(), Errored("boom")} {
		assert.True(t, st.State.IsTerminal())
		assert.NotEmpty(t, st.Message, "state %s", st.State)
	}
	assert.NotEmpty(t, Succeeded("https://x").VideoURL)
}
