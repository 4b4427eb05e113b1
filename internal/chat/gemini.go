package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Generation settings sent with every request.
const (
	temperature     = 1.0
	topK            = 40
	topP            = 0.95
	maxOutputTokens = 8192

	rateBurst = 4
	// maxEventSize bounds a single SSE line from the upstream.
	maxEventSize = 1 << 20
)

// Gemini talks to the Generative Language REST API.
type Gemini struct {
	client  *resty.Client
	apiKey  string
	model   string
	limiter *rate.Limiter
}

var _ Generator = (*Gemini)(nil)

// NewGemini builds a client for model at baseURL
// (e.g. https://generativelanguage.googleapis.com/v1beta). Calls are paced
// to perSecond with a small burst; a non-positive value disables pacing.
// An empty apiKey yields a client whose Configured reports false.
func NewGemini(apiKey, model, baseURL string, perSecond float64) *Gemini {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Gemini{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json"),
		apiKey:  apiKey,
		model:   model,
		limiter: rate.NewLimiter(limit, rateBurst),
	}
}

func (g *Gemini) Configured() bool {
	return g.apiKey != ""
}

// Generate returns the complete reply.
func (g *Gemini) Generate(ctx context.Context, turns []Turn) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gemini: rate limiter: %w", err)
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(newGenerateRequest(turns)).
		SetResult(&generateResponse{}).
		Post(g.endpoint("generateContent"))
	if err != nil {
		return "", fmt.Errorf("gemini: generateContent: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini: generateContent: status %d: %s", resp.StatusCode(), truncate(resp.String()))
	}

	out, ok := resp.Result().(*generateResponse)
	if !ok || out.text() == "" {
		return "", errors.New("gemini: no response from Gemini API")
	}
	return out.text(), nil
}

// Stream reads server-sent events from streamGenerateContent and yields the
// text of each chunk. Malformed events are skipped.
func (g *Gemini) Stream(ctx context.Context, turns []Turn) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := g.limiter.Wait(ctx); err != nil {
			yield("", fmt.Errorf("gemini: rate limiter: %w", err))
			return
		}

		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"alt": "sse", "key": g.apiKey}).
			SetBody(newGenerateRequest(turns)).
			SetDoNotParseResponse(true).
			Post(g.endpoint("streamGenerateContent"))
		if err != nil {
			yield("", fmt.Errorf("gemini: streamGenerateContent: %w", err))
			return
		}
		body := resp.RawBody()
		defer body.Close()

		if resp.StatusCode() >= 300 {
			detail, _ := io.ReadAll(io.LimitReader(body, 512))
			yield("", fmt.Errorf("gemini: streamGenerateContent: status %d: %s", resp.StatusCode(), detail))
			return
		}

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok || strings.TrimSpace(data) == "[DONE]" {
				continue
			}
			var chunk generateResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if text := chunk.text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("gemini: reading stream: %w", err))
		}
	}
}

func (g *Gemini) endpoint(method string) string {
	return "/models/" + g.model + ":" + method
}

// Wire types, trimmed to the fields we read or write.

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// newGenerateRequest maps transcript roles onto the upstream's: assistant
// turns are "model", everything else is "user".
func newGenerateRequest(turns []Turn) generateRequest {
	contents := make([]content, len(turns))
	for i, t := range turns {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		contents[i] = content{Role: role, Parts: []part{{Text: t.Text}}}
	}
	return generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			TopK:            topK,
			TopP:            topP,
			MaxOutputTokens: maxOutputTokens,
		},
	}
}

func truncate(s string) string {
	const limit = 512
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
