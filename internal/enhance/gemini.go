package enhance

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for enhancement.
const DefaultModel = "gemini-2.5-flash"

// ErrConfiguration is returned when the Gemini API key is not configured.
var ErrConfiguration = errors.New("enhance: GEMINI_API_KEY is not configured")

// GeminiGenerator streams completions from the Gemini API.
type GeminiGenerator struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	temperature float32

	mu     sync.Mutex
	client *genai.Client
}

// GeminiOption is a function that configures a GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithGeminiModel overrides the model name.
func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiGenerator) {
		if model = strings.TrimSpace(model); model != "" {
			g.model = model
		}
	}
}

// WithGeminiBaseURL points the client at a different API root.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.baseURL = strings.TrimSpace(u)
	}
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiGenerator) {
		g.httpClient = c
	}
}

// NewGeminiGenerator creates a generator. An empty apiKey is accepted; each
// call then yields ErrConfiguration without contacting the API.
func NewGeminiGenerator(apiKey string, opts ...GeminiOption) *GeminiGenerator {
	g := &GeminiGenerator{
		apiKey:      strings.TrimSpace(apiKey),
		model:       DefaultModel,
		temperature: 1.4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateStream implements TextGenerator.
func (g *GeminiGenerator) GenerateStream(ctx context.Context, system, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		client, err := g.genaiClient(ctx)
		if err != nil {
			yield("", err)
			return
		}

		cfg := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr(g.temperature),
			ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}

		for resp, err := range client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), cfg) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func (g *GeminiGenerator) genaiClient(ctx context.Context) (*genai.Client, error) {
	if g.apiKey == "" {
		return nil, ErrConfiguration
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

// Compile-time check that GeminiGenerator implements TextGenerator.
var _ TextGenerator = (*GeminiGenerator)(nil)
