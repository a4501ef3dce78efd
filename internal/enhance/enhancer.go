package enhance

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/maauso/wanvideo-api/internal/wan"
)

// ErrEmptyPrompt is returned when there is nothing to enhance.
var ErrEmptyPrompt = errors.New("enhance: prompt is required")

// TextGenerator streams a model reply for a prompt under a system instruction.
// Chunks are yielded in order; a non-nil error ends the stream.
type TextGenerator interface {
	GenerateStream(ctx context.Context, system, prompt string) iter.Seq2[string, error]
}

const textSystemInstruction = `You are a prompt-enhancement engine for Wan2.2 T2V. Receive an input prompt and automatically expand it into a refined generation prompt under 120 words. Focus on cinematic structure: first describe the opening scene, then specify any camera movement (e.g. pan left, dolly in, tilt up), then the reveal or payoff. Use natural language, one action per shot, precise motion and aesthetic details.

Output in this exact JSON format:
{
  "enhancedPrompt": "your enhanced prompt here",
  "negativePrompt": "` + DefaultNegativePrompt + `"
}`

const imageSystemInstruction = `You are a prompt-enhancement engine for Wan2.2 I2V. The user supplies a still image separately; receive their motion prompt and expand it into a refined animation prompt under 120 words. Do not describe the subject's appearance or the scene contents again. Describe only what moves: subject motion, camera movement (e.g. pan left, dolly in, orbit), pacing, and how the shot ends. Use natural language and precise motion details.

Output in this exact JSON format:
{
  "enhancedPrompt": "your enhanced prompt here",
  "negativePrompt": "` + DefaultNegativePrompt + `"
}`

// SystemInstruction returns the instruction used for mode. Unknown modes use the text variant.
func SystemInstruction(mode wan.Mode) string {
	if mode == wan.ModeImage {
		return imageSystemInstruction
	}
	return textSystemInstruction
}

// Enhancer turns a short prompt into a normalized enhancement.
type Enhancer struct {
	gen    TextGenerator
	logger *slog.Logger
}

// NewEnhancer creates a new Enhancer.
func NewEnhancer(gen TextGenerator, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{gen: gen, logger: logger}
}

// Enhance streams a reply from the generator, drains it into one string and
// normalizes it. Stream errors are returned immediately.
func (e *Enhancer) Enhance(ctx context.Context, prompt string, mode wan.Mode) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}

	log := e.logger.With(slog.String("mode", string(mode)))
	log.Info("enhancing prompt", slog.Int("prompt_len", len([]rune(prompt))))

	var sb strings.Builder
	for chunk, err := range e.gen.GenerateStream(ctx, SystemInstruction(mode), prompt) {
		if err != nil {
			log.Error("enhancement stream failed", slog.String("error", err.Error()))
			return Result{}, fmt.Errorf("enhance: generate: %w", err)
		}
		sb.WriteString(chunk)
	}

	raw := sb.String()
	log.Debug("model reply", slog.String("raw", raw))

	res, err := Normalize(raw)
	if err != nil {
		log.Warn("unusable model reply", slog.Int("raw_len", len(raw)))
		return Result{}, err
	}

	log.Info("prompt enhanced", slog.Int("enhanced_len", len([]rune(res.EnhancedPrompt))))
	return res, nil
}
