// Command wanctl submits, polls and watches Wan video tasks and enhances prompts
// from the command line. Results are printed to stdout as JSON; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/wanvideo-api/internal/config"
	"github.com/maauso/wanvideo-api/internal/enhance"
	"github.com/maauso/wanvideo-api/internal/generation"
	"github.com/maauso/wanvideo-api/internal/job"
	"github.com/maauso/wanvideo-api/internal/wan"
)

const usage = `usage: wanctl <command> [flags]

commands:
  submit   submit a generation task (-watch to wait for the result)
  poll     check a task once
  watch    poll one or more tasks until they finish
  enhance  rewrite a prompt with Gemini
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg, logger: cfg.NewLoggerTo(stderr), out: stdout, errOut: stderr}

	switch args[0] {
	case "submit":
		return a.submit(ctx, args[1:])
	case "poll":
		return a.poll(ctx, args[1:])
	case "watch":
		return a.watch(ctx, args[1:])
	case "enhance":
		return a.enhance(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func (a *app) wanClient() *wan.HTTPClient {
	opts := []wan.ClientOption{
		wan.WithAPIKey(a.cfg.WanAPIKey()),
		wan.WithHTTPClient(&http.Client{Timeout: a.cfg.HTTPTimeout()}),
	}
	if a.cfg.DashScopeBaseURL != "" {
		opts = append(opts, wan.WithBaseURL(a.cfg.DashScopeBaseURL))
	}
	return wan.NewClient(opts...)
}

func (a *app) service() *job.Service {
	return job.NewService(a.wanClient(), job.NewMemoryRepository(), a.logger,
		job.WithPollInterval(a.cfg.PollInterval()),
		job.WithMaxAttempts(a.cfg.PollMaxAttempts),
	)
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := a.flagSet("submit")
	mode := fs.String("mode", string(wan.ModeText), "text or image")
	prompt := fs.String("prompt", "", "video description")
	negative := fs.String("negative", "", "things to avoid")
	resolution := fs.String("resolution", string(wan.Resolution1080P), "480P or 1080P")
	ratio := fs.String("ratio", string(wan.Ratio16x9), "aspect ratio (text mode)")
	image := fs.String("image", "", "source image URL (image mode)")
	wait := fs.Bool("watch", false, "poll until the task finishes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	svc := a.service()
	handle, err := svc.SubmitGeneration(ctx, wan.GenerationRequest{
		Mode:           wan.Mode(*mode),
		Prompt:         *prompt,
		NegativePrompt: *negative,
		Resolution:     wan.Resolution(*resolution),
		AspectRatio:    wan.AspectRatio(*ratio),
		ImageURL:       *image,
	})
	if err != nil {
		return err
	}
	if !*wait {
		return a.print(handle)
	}

	st, err := a.watchOne(ctx, generation.NewDriver(a.wanClient(), a.logger), handle)
	if err != nil {
		return err
	}
	return a.print(watchResult{TaskHandle: handle, TaskStatus: st})
}

func (a *app) poll(ctx context.Context, args []string) error {
	fs := a.flagSet("poll")
	taskID := fs.String("task", "", "task id")
	pollURL := fs.String("url", "", "direct poll URL (wins over -task)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	handle := wan.TaskHandle{TaskID: *taskID, PollURL: *pollURL}
	if handle.IsZero() {
		return fmt.Errorf("%w: -task or -url is required", errUsage)
	}
	return a.print(a.service().PollOnce(ctx, handle))
}

// watchResult pairs a handle with its final status.
type watchResult struct {
	wan.TaskHandle
	generation.TaskStatus
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.flagSet("watch")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: at least one task id or poll URL is required", errUsage)
	}

	poller := generation.NewDriver(a.wanClient(), a.logger)
	results := make([]watchResult, fs.NArg())

	eg, egCtx := errgroup.WithContext(ctx)
	for i, arg := range fs.Args() {
		handle := parseHandle(arg)
		eg.Go(func() error {
			st, err := a.watchOne(egCtx, poller, handle)
			if err != nil {
				return err
			}
			results[i] = watchResult{TaskHandle: handle, TaskStatus: st}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return a.print(results)
}

func (a *app) watchOne(ctx context.Context, p generation.Poller, handle wan.TaskHandle) (generation.TaskStatus, error) {
	maxAttempts := a.cfg.PollMaxAttempts
	log := a.logger.With(slog.String("task_id", handle.TaskID), slog.String("poll_url", handle.PollURL))

	return generation.Watch(ctx, p, handle, generation.WatchOptions{
		MaxAttempts: maxAttempts,
		Interval:    a.cfg.PollInterval(),
		OnAttempt: func(attempt int, st generation.TaskStatus) {
			log.Info("poll",
				slog.Int("attempt", attempt),
				slog.String("status", string(st.State)),
				slog.Int("progress", generation.Progress(attempt, maxAttempts)),
			)
		},
	})
}

func (a *app) enhance(ctx context.Context, args []string) error {
	fs := a.flagSet("enhance")
	prompt := fs.String("prompt", "", "prompt to rewrite")
	mode := fs.String("mode", string(wan.ModeText), "text or image")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	gen := enhance.NewGeminiGenerator(a.cfg.GeminiAPIKey,
		enhance.WithGeminiModel(a.cfg.GeminiModel),
		enhance.WithGeminiBaseURL(a.cfg.GeminiBaseURL),
	)
	res, err := enhance.NewEnhancer(gen, a.logger).Enhance(ctx, *prompt, wan.Mode(*mode))
	if err != nil {
		return err
	}
	return a.print(res)
}

// parseHandle treats http(s) arguments as poll URLs and anything else as a task id.
func parseHandle(arg string) wan.TaskHandle {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return wan.TaskHandle{PollURL: arg}
	}
	return wan.TaskHandle{TaskID: arg}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
