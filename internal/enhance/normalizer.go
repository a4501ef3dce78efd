// Package enhance expands a short user prompt into a richer video prompt using a
// generative text model, and normalizes the model's free-form reply into a
// strict {enhancedPrompt, negativePrompt} record.
package enhance

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/maauso/wanvideo-api/internal/wan"
)

// DefaultNegativePrompt is paired with every enhanced prompt.
const DefaultNegativePrompt = "bright colors, overexposed, static, blurred details, subtitles, worst quality, low quality, extra fingers, poorly drawn hands or faces"

// MaxEnhancedPromptLength matches the video prompt limit so the result can be
// submitted as is.
const MaxEnhancedPromptLength = wan.MaxPromptLength

// ErrFormat is returned when the model reply yields no usable prompt.
var ErrFormat = errors.New("enhance: invalid response format")

// Result is a normalized enhancement. Both fields are always set.
type Result struct {
	EnhancedPrompt string `json:"enhancedPrompt"`
	NegativePrompt string `json:"negativePrompt"`
}

// modelPayload is what a parsing tier extracted. A parsed object without a
// string enhancedPrompt yields an empty prompt.
type modelPayload struct {
	EnhancedPrompt string
}

// parseAttempt is one tier of the fallback ladder.
type parseAttempt func(raw string) (modelPayload, bool)

var ladder = []parseAttempt{
	parseWhole,
	parseFenced,
	parseVerbatim,
}

var (
	jsonFence  = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	plainFence = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// Normalize extracts an enhancement from raw model output. It tries, in order:
// the whole reply as a JSON object, the first fenced code block that holds a
// JSON object (json-tagged blocks first, then untagged ones), and finally the
// trimmed reply verbatim. A tier that parses an object ends the search even if the object
// carries no usable prompt.
func Normalize(raw string) (Result, error) {
	var payload modelPayload
	for _, attempt := range ladder {
		if p, ok := attempt(raw); ok {
			payload = p
			break
		}
	}

	prompt := strings.TrimSpace(payload.EnhancedPrompt)
	if prompt == "" {
		return Result{}, ErrFormat
	}

	return Result{
		EnhancedPrompt: wan.Truncate(prompt, MaxEnhancedPromptLength),
		NegativePrompt: DefaultNegativePrompt,
	}, nil
}

func parseWhole(raw string) (modelPayload, bool) {
	return decodeObject(strings.TrimSpace(raw))
}

func parseFenced(raw string) (modelPayload, bool) {
	for _, re := range []*regexp.Regexp{jsonFence, plainFence} {
		for _, m := range re.FindAllStringSubmatch(raw, -1) {
			if p, ok := decodeObject(m[1]); ok {
				return p, true
			}
		}
	}
	return modelPayload{}, false
}

func parseVerbatim(raw string) (modelPayload, bool) {
	return modelPayload{EnhancedPrompt: strings.TrimSpace(raw)}, true
}

func decodeObject(s string) (modelPayload, bool) {
	if !strings.HasPrefix(s, "{") {
		return modelPayload{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return modelPayload{}, false
	}

	// A missing or non-string enhancedPrompt leaves the prompt empty.
	var prompt string
	if err := json.Unmarshal(fields["enhancedPrompt"], &prompt); err != nil {
		return modelPayload{}, true
	}
	return modelPayload{EnhancedPrompt: prompt}, true
}
