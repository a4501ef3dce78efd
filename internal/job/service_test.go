package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/wanvideo-api/internal/generation"
	"github.com/maauso/wanvideo-api/internal/wan"
)

// mockWanClient is a testify mock for wan.Client.
type mockWanClient struct {
	mock.Mock
}

func (m *mockWanClient) Submit(ctx context.Context, payload wan.Payload) (wan.TaskHandle, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(wan.TaskHandle), args.Error(1)
}

func (m *mockWanClient) Poll(ctx context.Context, handle wan.TaskHandle) (wan.PollResult, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(wan.PollResult), args.Error(1)
}

// sequencePoller returns the queued statuses, then keeps returning the last.
type sequencePoller struct {
	mu    sync.Mutex
	seq   []generation.TaskStatus
	calls int
}

func (p *sequencePoller) Poll(context.Context, wan.TaskHandle) generation.TaskStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.seq[min(p.calls, len(p.seq)-1)]
	p.calls++
	return st
}

func TestService_SubmitGeneration(t *testing.T) {
	ctx := context.Background()
	client := &mockWanClient{}
	svc := NewService(client, NewMemoryRepository(), nil)

	client.On("Submit", ctx, mock.MatchedBy(func(p wan.Payload) bool {
		return p.Model == wan.ModelTextToVideo && p.Parameters.Size == "1920x1080"
	})).Return(wan.TaskHandle{TaskID: "abc"}, nil)

	handle, err := svc.SubmitGeneration(ctx, testRequest())
	require.NoError(t, err)
	assert.Equal(t, wan.TaskHandle{TaskID: "abc"}, handle)
	client.AssertExpectations(t)
}

func TestService_SubmitGeneration_ValidationNeverCallsProvider(t *testing.T) {
	client := &mockWanClient{}
	svc := NewService(client, NewMemoryRepository(), nil)

	_, err := svc.SubmitGeneration(context.Background(), wan.GenerationRequest{Mode: wan.ModeImage})
	assert.ErrorIs(t, err, wan.ErrValidation)
	client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestService_SubmitGeneration_ProviderError(t *testing.T) {
	client := &mockWanClient{}
	svc := NewService(client, NewMemoryRepository(), nil)

	client.On("Submit", mock.Anything, mock.Anything).
		Return(wan.TaskHandle{}, &wan.ProviderError{Kind: wan.ErrSubmission, StatusCode: 400, Body: "InvalidParameter"})

	_, err := svc.SubmitGeneration(context.Background(), testRequest())
	assert.ErrorIs(t, err, wan.ErrSubmission)
}

func TestService_PollOnce(t *testing.T) {
	ctx := context.Background()
	client := &mockWanClient{}
	svc := NewService(client, NewMemoryRepository(), nil)
	handle := wan.TaskHandle{TaskID: "abc"}

	client.On("Poll", ctx, handle).
		Return(wan.PollResult{Status: wan.TaskFailed, Message: "bad input image"}, nil)

	st := svc.PollOnce(ctx, handle)
	assert.Equal(t, generation.Failed("bad input image"), st)
}

func TestService_CreateJob(t *testing.T) {
	ctx := context.Background()
	client := &mockWanClient{}
	repo := NewMemoryRepository()
	svc := NewService(client, repo, nil)

	client.On("Submit", ctx, mock.Anything).Return(wan.TaskHandle{TaskID: "abc"}, nil)

	job, err := svc.CreateJob(ctx, testRequest())
	require.NoError(t, err)
	assert.Equal(t, generation.StatePending, job.Status)
	assert.Equal(t, "abc", job.Handle.TaskID)

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
}

func TestService_CreateJob_SubmitFailureStoresNothing(t *testing.T) {
	client := &mockWanClient{}
	repo := NewMemoryRepository()
	svc := NewService(client, repo, nil)

	client.On("Submit", mock.Anything, mock.Anything).Return(wan.TaskHandle{}, wan.ErrConfiguration)

	_, err := svc.CreateJob(context.Background(), testRequest())
	assert.ErrorIs(t, err, wan.ErrConfiguration)

	jobs, _ := repo.ListByUser(context.Background(), "user-1")
	assert.Empty(t, jobs)
}

func TestService_Track_Succeeds(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	poller := &sequencePoller{seq: []generation.TaskStatus{
		generation.Pending(),
		generation.Pending(),
		generation.Succeeded("https://cdn/v.mp4"),
	}}
	svc := NewService(&mockWanClient{}, repo, nil,
		WithPoller(poller),
		WithPollInterval(time.Millisecond),
	)

	job := New(testRequest(), wan.TaskHandle{TaskID: "abc"})
	require.NoError(t, repo.Save(ctx, job))

	final, err := svc.Track(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.StateSucceeded, final.State)

	stored, _ := repo.FindByID(ctx, job.ID)
	assert.Equal(t, generation.StateSucceeded, stored.Status)
	assert.Equal(t, "https://cdn/v.mp4", stored.VideoURL)
	assert.Equal(t, 3, stored.Attempts)
	assert.Equal(t, 100, stored.Progress)
	assert.False(t, stored.CompletedAt.IsZero())
}

func TestService_Track_TimesOut(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	poller := &sequencePoller{seq: []generation.TaskStatus{generation.Pending()}}
	svc := NewService(&mockWanClient{}, repo, nil,
		WithPoller(poller),
		WithPollInterval(time.Millisecond),
		WithMaxAttempts(5),
	)

	job := New(testRequest(), wan.TaskHandle{TaskID: "abc"})
	require.NoError(t, repo.Save(ctx, job))

	final, err := svc.Track(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.StateTimedOut, final.State)
	assert.Equal(t, 5, poller.calls)

	stored, _ := repo.FindByID(ctx, job.ID)
	assert.Equal(t, generation.StateTimedOut, stored.Status)
	assert.Equal(t, generation.TimedOutMessage, stored.Error)
	assert.Equal(t, 95, stored.Progress)
}

func TestService_Track_TerminalJobIsNotPolled(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	poller := &sequencePoller{seq: []generation.TaskStatus{generation.Pending()}}
	svc := NewService(&mockWanClient{}, repo, nil, WithPoller(poller))

	job := NewWithID("done")
	_ = job.Apply(generation.Failed("nope"))
	require.NoError(t, repo.Save(ctx, job))

	final, err := svc.Track(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, generation.StateFailed, final.State)
	assert.Zero(t, poller.calls)
}

func TestService_Track_NotFound(t *testing.T) {
	svc := NewService(&mockWanClient{}, NewMemoryRepository(), nil)

	_, err := svc.Track(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestService_ListJobs(t *testing.T) {
	ctx := context.Background()
	client := &mockWanClient{}
	svc := NewService(client, NewMemoryRepository(), nil)
	client.On("Submit", ctx, mock.Anything).Return(wan.TaskHandle{TaskID: "t"}, nil)

	first, err := svc.CreateJob(ctx, testRequest())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := svc.CreateJob(ctx, testRequest())
	require.NoError(t, err)

	jobs, err := svc.ListJobs(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestService_DeleteJob(t *testing.T) {
	ctx := context.Background()
	client := &mockWanClient{}
	svc := NewService(client, NewMemoryRepository(), nil)
	client.On("Submit", ctx, mock.Anything).Return(wan.TaskHandle{TaskID: "t"}, nil)

	created, err := svc.CreateJob(ctx, testRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteJob(ctx, created.ID))

	_, err = svc.GetJob(ctx, created.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, svc.DeleteJob(ctx, created.ID), ErrJobNotFound)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&mockWanClient{}, NewMemoryRepository(), nil)
	assert.Equal(t, generation.DefaultMaxAttempts, svc.MaxAttempts())
	assert.Equal(t, generation.DefaultInterval, svc.pollInterval)

	svc = NewService(&mockWanClient{}, NewMemoryRepository(), nil, WithMaxAttempts(0), WithPollInterval(-1))
	assert.Equal(t, generation.DefaultMaxAttempts, svc.MaxAttempts())
	assert.Equal(t, generation.DefaultInterval, svc.pollInterval)
}
