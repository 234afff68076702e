// Gemini HTTP adapter. Calls the Google generative language REST API directly
// with stdlib net/http, using the SSE streaming endpoint:
//
//	POST {base}/models/{model}:streamGenerateContent?alt=sse&key={key}
//
// Each SSE frame is a "data: {json}" line carrying candidate content parts.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiProvider implements StreamingProvider against the Gemini REST API.
type GeminiProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider creates a GeminiProvider. As with Ollama, the client has
// no timeout of its own; lifetimes are bounded by the request context.
func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

// ─── internal Gemini JSON types ──────────────────────────────────────────────

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiStreamChunk struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// ─── StreamingProvider implementation ───────────────────────────────────────

// ChatStream starts an SSE streaming generation and forwards text parts as deltas.
func (p *GeminiProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", p.baseURL, model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini stream: build request: %w", err)
	}
	httpReq.Header.Set(headerContentType, mimeJSON)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("gemini stream: status %d", resp.StatusCode)
	}

	out := make(chan StreamDelta)
	go p.consumeSSE(ctx, resp.Body, out)
	return out, nil
}

// consumeSSE reads "data: {json}" frames from body and forwards text parts.
// Owns closing both the response body and the output channel.
func (p *GeminiProvider) consumeSSE(ctx context.Context, body io.ReadCloser, out chan<- StreamDelta) {
	defer close(out)
	defer body.Close() //nolint:errcheck

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	finished := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk geminiStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			sendDelta(ctx, out, StreamDelta{Err: fmt.Errorf("gemini stream: decode chunk: %w", err)})
			return
		}

		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				if part.Text == "" {
					continue
				}
				if !sendDelta(ctx, out, StreamDelta{Text: part.Text}) {
					return
				}
			}
			if cand.FinishReason != "" {
				finished = true
			}
		}
	}

	if err := scanner.Err(); err != nil {
		sendDelta(ctx, out, StreamDelta{Err: fmt.Errorf("gemini stream: %w", err)})
		return
	}
	if !finished {
		sendDelta(ctx, out, StreamDelta{Err: fmt.Errorf("gemini stream: connection closed before completion")})
		return
	}
	sendDelta(ctx, out, StreamDelta{Done: true})
}

// buildGeminiRequest maps the generic ChatRequest onto the Gemini wire format.
// System messages become systemInstruction; assistant turns map to role "model".
func buildGeminiRequest(req ChatRequest) geminiRequest {
	out := geminiRequest{}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case "assistant":
			out.Contents = append(out.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: m.Content}},
			})
		default:
			out.Contents = append(out.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}

	if req.Temperature != 0 || req.MaxTokens != 0 {
		out.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	return out
}

// ModelInfo returns static metadata for this provider/model.
func (p *GeminiProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.model,
		Provider:  "gemini",
		Version:   "v1beta",
		MaxTokens: 8192,
	}
}

// HealthCheck issues a lightweight GET against the model metadata endpoint.
func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/models/%s?key=%s", p.baseURL, p.model, p.apiKey)
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("gemini healthcheck: build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini healthcheck: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini healthcheck: status %d", resp.StatusCode)
	}
	return nil
}
