package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Candidate is one entity occurrence as reported by a model provider.
// Offsets are the model's claim and are re-anchored against the document
// text before a mention is emitted.
type Candidate struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Relation is one typed relation as reported by a model provider.
type Relation struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Type       string  `json:"type"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// ProviderResult is a provider's full answer for one document.
type ProviderResult struct {
	Candidates []Candidate `json:"entities"`
	Relations  []Relation  `json:"relationships"`
}

// Provider is the pluggable external model capability:
// extract(text) -> candidates. Implementations may suspend on network or
// model latency; callers bound each call with a context deadline.
type Provider interface {
	Extract(ctx context.Context, text string) (*ProviderResult, error)
	Model() string
}

// HTTPProviderConfig holds HTTP provider settings.
type HTTPProviderConfig struct {
	// Endpoint is the base URL of the generate API (default: http://localhost:11434).
	Endpoint string

	// Model is the model name sent with each request (default: qwen2.5:7b).
	Model string

	// APIKey, when set, is sent as a bearer token for hosted providers.
	APIKey string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RateLimit is the maximum requests per second (default: 2).
	RateLimit float64
}

// HTTPProvider calls an Ollama-style generate endpoint with an extraction
// prompt and parses the JSON the model returns. All calls go through a
// circuit breaker and a request rate limiter.
type HTTPProvider struct {
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	breaker  *Breaker
	limiter  *rate.Limiter
}

// generateRequest is the request body for the /api/generate endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the response from the /api/generate endpoint.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewHTTPProvider creates an HTTP provider with the given configuration.
func NewHTTPProvider(config HTTPProviderConfig) *HTTPProvider {
	if config.Endpoint == "" {
		config.Endpoint = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen2.5:7b"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2
	}

	return &HTTPProvider{
		endpoint: config.Endpoint,
		model:    config.Model,
		apiKey:   config.APIKey,
		timeout:  config.Timeout,
		client:   &http.Client{Timeout: config.Timeout},
		breaker:  NewBreaker(),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Extract sends the extraction prompt for text and parses the model's
// JSON answer. The call is rate limited and circuit-breaker protected.
func (p *HTTPProvider) Extract(ctx context.Context, text string) (*ProviderResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := p.breaker.Execute(ctx, func() (interface{}, error) {
		return p.extract(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return result.(*ProviderResult), nil
}

// extract is the internal implementation without breaker wrapping.
func (p *HTTPProvider) extract(ctx context.Context, text string) (*ProviderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  p.model,
		Prompt: buildExtractionPrompt(text),
		Stream: false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return ParseProviderResponse(respData.Response)
}

// Model returns the configured model name.
func (p *HTTPProvider) Model() string { return p.model }

var _ Provider = (*HTTPProvider)(nil)
