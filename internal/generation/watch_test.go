package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maauso/wanvideo-api/internal/wan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedPoller returns the scripted statuses in order, then repeats the last one.
type scriptedPoller struct {
	mu     sync.Mutex
	script []TaskStatus
	calls  int
}

func (p *scriptedPoller) Poll(_ context.Context, _ wan.TaskHandle) TaskStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := min(p.calls, len(p.script)-1)
	p.calls++
	return p.script[i]
}

func (p *scriptedPoller) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var fastOpts = WatchOptions{Interval: time.Millisecond}

func TestWatch_StopsOnFirstTerminal(t *testing.T) {
	p := &scriptedPoller{script: []TaskStatus{Pending(), Pending(), Pending(), Succeeded("https://cdn/v.mp4")}}

	got, err := Watch(context.Background(), p, wan.TaskHandle{TaskID: "t"}, fastOpts)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, got.State)
	assert.Equal(t, "https://cdn/v.mp4", got.VideoURL)
	assert.Equal(t, 4, p.Calls())
}

func TestWatch_TimesOutAfterBudget(t *testing.T) {
	p := &scriptedPoller{script: []TaskStatus{Pending()}}

	got, err := Watch(context.Background(), p, wan.TaskHandle{TaskID: "t"}, fastOpts)
	require.NoError(t, err)

	assert.Equal(t, StateTimedOut, got.State)
	assert.Equal(t, TimedOutMessage, got.Message)
	assert.Equal(t, DefaultMaxAttempts, p.Calls())
}

func TestWatch_SucceededWithoutURLKeepsPolling(t *testing.T) {
	fetcher := &mockFetcher{}
	handle := wan.TaskHandle{TaskID: "t"}
	fetcher.On("Poll", mock.Anything, handle).Return(wan.PollResult{Status: wan.TaskSucceeded}, nil).Times(2)
	fetcher.On("Poll", mock.Anything, handle).Return(wan.PollResult{Status: wan.TaskSucceeded, VideoURL: "https://v"}, nil).Once()

	got, err := Watch(context.Background(), NewDriver(fetcher, nil), handle, fastOpts)
	require.NoError(t, err)

	assert.Equal(t, Succeeded("https://v"), got)
	fetcher.AssertNumberOfCalls(t, "Poll", 3)
}

func TestWatch_FailureIsTerminal(t *testing.T) {
	p := &scriptedPoller{script: []TaskStatus{Pending(), Failed("nsfw")}}

	got, err := Watch(context.Background(), p, wan.TaskHandle{TaskID: "t"}, fastOpts)
	require.NoError(t, err)
	assert.Equal(t, Failed("nsfw"), got)
	assert.Equal(t, 2, p.Calls())
}

func TestWatch_OnAttemptSeesEveryPoll(t *testing.T) {
	p := &scriptedPoller{script: []TaskStatus{Pending(), Pending(), Succeeded("u")}}

	var attempts []int
	opts := fastOpts
	opts.MaxAttempts = 5
	opts.OnAttempt = func(attempt int, _ TaskStatus) { attempts = append(attempts, attempt) }

	_, err := Watch(context.Background(), p, wan.TaskHandle{TaskID: "t"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestWatch_ContextCancelled(t *testing.T) {
	p := &scriptedPoller{script: []TaskStatus{Pending()}}
	ctx, cancel := context.WithCancel(context.Background())

	opts := WatchOptions{
		Interval: time.Hour,
		OnAttempt: func(int, TaskStatus) {
			cancel()
		},
	}

	got, err := Watch(ctx, p, wan.TaskHandle{TaskID: "t"}, opts)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StatePending, got.State)
	assert.Equal(t, 1, p.Calls())
}

func TestWatch_AlreadyCancelled(t *testing.T) {
	p := &scriptedPoller{script: []TaskStatus{Pending()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Watch(ctx, p, wan.TaskHandle{TaskID: "t"}, fastOpts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.Calls())
}

func TestProgress(t *testing.T) {
	tests := []struct {
		attempt, max, want int
	}{
		{0, 40, 0},
		{1, 40, 3},
		{20, 40, 50},
		{38, 40, 95},
		{40, 40, 95},
		{5, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Progress(tt.attempt, tt.max), "Progress(%d, %d)", tt.attempt, tt.max)
	}
}
