package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/wanvideo-api/internal/generation"
	"github.com/maauso/wanvideo-api/internal/wan"
)

// Service orchestrates the generation lifecycle: build and submit the
// provider task, classify single polls, and optionally track a session in the
// background until it reaches a terminal state.
type Service struct {
	client wan.Client
	poller generation.Poller
	repo   Repository
	logger *slog.Logger

	pollInterval time.Duration
	maxAttempts  int
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithPollInterval sets the wait between background polls.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMaxAttempts sets the background poll budget.
func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithPoller replaces the default Driver built from the client.
func WithPoller(p generation.Poller) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.poller = p
		}
	}
}

// NewService creates a new Service.
func NewService(client wan.Client, repo Repository, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:       client,
		repo:         repo,
		logger:       logger,
		pollInterval: generation.DefaultInterval,
		maxAttempts:  generation.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.poller == nil {
		s.poller = generation.NewDriver(client, logger)
	}
	return s
}

// MaxAttempts returns the configured poll budget.
func (s *Service) MaxAttempts() int { return s.maxAttempts }

// SubmitGeneration validates req, builds the provider payload and submits it.
func (s *Service) SubmitGeneration(ctx context.Context, req wan.GenerationRequest) (wan.TaskHandle, error) {
	payload, err := wan.BuildPayload(req)
	if err != nil {
		return wan.TaskHandle{}, err
	}

	log := s.logger.With(
		slog.String("mode", string(req.Mode)),
		slog.String("model", payload.Model),
		slog.String("user_id", req.UserID),
	)
	if req.Mode == wan.ModeText && !wan.IsSupported(req.Resolution, req.AspectRatio) {
		log.Info("aspect ratio not native for resolution, using fallback size",
			slog.String("resolution", string(req.Resolution)),
			slog.String("aspect_ratio", string(req.AspectRatio)),
			slog.String("size", payload.Parameters.Size),
		)
	}

	handle, err := s.client.Submit(ctx, payload)
	if err != nil {
		var pe *wan.ProviderError
		if errors.As(err, &pe) {
			log.Error("task submission failed",
				slog.Int("status_code", pe.StatusCode),
				slog.String("provider_body", pe.Body),
				slog.String("error", err.Error()),
			)
		} else {
			log.Error("task submission failed", slog.String("error", err.Error()))
		}
		return wan.TaskHandle{}, err
	}

	log.Info("task submitted",
		slog.String("task_id", handle.TaskID),
		slog.String("poll_url", handle.PollURL),
		slog.String("size", payload.Parameters.Size),
		slog.String("resolution", payload.Parameters.Resolution),
	)
	return handle, nil
}

// PollOnce performs one classified status check.
func (s *Service) PollOnce(ctx context.Context, handle wan.TaskHandle) generation.TaskStatus {
	return s.poller.Poll(ctx, handle)
}

// CreateJob submits req and persists a PENDING session for it.
// Nothing is stored when submission fails.
func (s *Service) CreateJob(ctx context.Context, req wan.GenerationRequest) (*Job, error) {
	handle, err := s.SubmitGeneration(ctx, req)
	if err != nil {
		return nil, err
	}

	job := New(req, handle)
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("task_id", handle.TaskID),
	)
	return job, nil
}

// Track polls the session's task until it is terminal or the budget runs out,
// persisting attempts and progress along the way. It returns the final status.
func (s *Service) Track(ctx context.Context, jobID string) (generation.TaskStatus, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return generation.TaskStatus{}, err
	}
	if job.IsTerminal() {
		return job.TaskStatus(), nil
	}

	log := s.logger.With(slog.String("job_id", job.ID), slog.String("task_id", job.Handle.TaskID))
	log.Info("tracking started", slog.Int("max_attempts", s.maxAttempts))

	final, err := generation.Watch(ctx, s.poller, job.Handle, generation.WatchOptions{
		MaxAttempts: s.maxAttempts,
		Interval:    s.pollInterval,
		OnAttempt: func(attempt int, st generation.TaskStatus) {
			job.RecordAttempt(attempt, s.maxAttempts)
			if !st.State.IsTerminal() {
				if saveErr := s.repo.Save(ctx, job); saveErr != nil {
					log.Warn("failed to save progress", slog.String("error", saveErr.Error()))
				}
			}
		},
	})
	if err != nil {
		log.Warn("tracking stopped", slog.String("error", err.Error()))
		return final, err
	}

	if applyErr := job.Apply(final); applyErr != nil {
		return final, fmt.Errorf("apply %s: %w", final.State, applyErr)
	}
	if saveErr := s.repo.Save(ctx, job); saveErr != nil {
		log.Error("failed to save final state", slog.String("error", saveErr.Error()))
		return final, fmt.Errorf("save job: %w", saveErr)
	}

	log.Info("tracking finished",
		slog.String("status", string(final.State)),
		slog.Int("attempts", job.Attempts),
		slog.String("message", final.Message),
	)
	return final, nil
}

// GetJob retrieves a session by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// DeleteJob removes a session. Background tracking of a deleted session
// may still save its final state.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("job deleted", slog.String("job_id", id))
	return nil
}

// ListJobs returns a user's sessions, newest first.
func (s *Service) ListJobs(ctx context.Context, userID string) ([]*Job, error) {
	return s.repo.ListByUser(ctx, userID)
}
