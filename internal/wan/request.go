package wan

import (
	"fmt"
	"strings"
)

// BuildPayload validates a request and converts it to the task-creation payload.
// Prompts are trimmed and then silently truncated to the provider limits.
func BuildPayload(req GenerationRequest) (Payload, error) {
	if !req.Mode.IsValid() {
		return Payload{}, fmt.Errorf("%w: unsupported mode %q", ErrValidation, req.Mode)
	}

	prompt := Truncate(strings.TrimSpace(req.Prompt), MaxPromptLength)
	negative := Truncate(strings.TrimSpace(req.NegativePrompt), MaxNegativePromptLength)

	dim := ResolveDimension(req.Resolution, req.AspectRatio, req.Mode)
	params := Parameters{
		PromptExtend: true,
		Watermark:    false,
	}

	if req.Mode == ModeImage {
		imageURL := strings.TrimSpace(req.ImageURL)
		if imageURL == "" {
			return Payload{}, fmt.Errorf("%w: image URL is required for image-to-video", ErrValidation)
		}
		params.Resolution = dim.Resolution
		return Payload{
			Model: ModelImageToVideo,
			Input: Input{
				ImgURL:         imageURL,
				Prompt:         prompt,
				NegativePrompt: negative,
			},
			Parameters: params,
		}, nil
	}

	if prompt == "" {
		return Payload{}, fmt.Errorf("%w: prompt is required for text-to-video", ErrValidation)
	}
	params.Size = dim.Size
	return Payload{
		Model: ModelTextToVideo,
		Input: Input{
			Prompt:         prompt,
			NegativePrompt: negative,
		},
		Parameters: params,
	}, nil
}

// Truncate shortens s to at most limit characters (runes).
// Strings already within the limit are returned unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
