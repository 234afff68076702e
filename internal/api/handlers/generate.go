package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diaflow/diaflow/internal/domain/generate"
	"github.com/diaflow/diaflow/internal/infra/llm"
)

// GenerateService is the generation pipeline contract consumed by the handler.
type GenerateService interface {
	Generate(ctx context.Context, in generate.Input) (<-chan generate.Event, error)
}

type GenerateHandler struct {
	service GenerateService
}

func NewGenerateHandler(service GenerateService) *GenerateHandler {
	return &GenerateHandler{service: service}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateRequest struct {
	TextPrompt          string        `json:"textPrompt"`
	DiagramType         string        `json:"diagramType"`
	ProjectID           string        `json:"projectId"`
	ClientRenderedImage string        `json:"clientRenderedImage,omitempty"`
	ChatHistory         []chatMessage `json:"chatHistory,omitempty"`
	IsRetry             bool          `json:"isRetry,omitempty"`
	ClearCache          bool          `json:"clearCache,omitempty"`
	FailureReason       string        `json:"failureReason,omitempty"`
}

type generateRequestError struct {
	status  int
	message string
}

func (e generateRequestError) Error() string { return e.message }

// Generate streams diagram generation events to the client as SSE.
// POST /api/v1/diagrams/generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	input, err := buildGenerateInput(r)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	events, err := h.service.Generate(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bw, flusher, err := prepareEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	streamEvents(bw, flusher, events)
}

func buildGenerateInput(r *http.Request) (generate.Input, error) {
	ctx := r.Context()
	wsID, err := getWorkspaceID(ctx)
	if err != nil {
		return generate.Input{}, generateRequestError{status: http.StatusUnauthorized, message: "missing workspace context"}
	}
	userID, err := getUserID(ctx)
	if err != nil {
		return generate.Input{}, generateRequestError{status: http.StatusUnauthorized, message: "missing user context"}
	}

	var req generateRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		return generate.Input{}, generateRequestError{status: http.StatusBadRequest, message: "invalid request body"}
	}
	if req.TextPrompt == "" {
		return generate.Input{}, generateRequestError{status: http.StatusBadRequest, message: "textPrompt is required"}
	}
	if req.DiagramType == "" {
		return generate.Input{}, generateRequestError{status: http.StatusBadRequest, message: "diagramType is required"}
	}
	if req.ProjectID == "" {
		return generate.Input{}, generateRequestError{status: http.StatusBadRequest, message: "projectId is required"}
	}

	history := make([]llm.Message, 0, len(req.ChatHistory))
	for _, m := range req.ChatHistory {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	return generate.Input{
		WorkspaceID:   wsID,
		UserID:        userID,
		ProjectID:     req.ProjectID,
		Prompt:        req.TextPrompt,
		DiagramType:   req.DiagramType,
		History:       history,
		IsRetry:       req.IsRetry,
		ClearCache:    req.ClearCache,
		FailureReason: req.FailureReason,
		PreviewImage:  req.ClientRenderedImage,
	}, nil
}

func prepareEventStream(w http.ResponseWriter) (*bufio.Writer, http.Flusher, error) {
	w.Header().Set(headerContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Flusher")
	}

	return bufio.NewWriter(w), flusher, nil
}

func streamEvents(bw *bufio.Writer, flusher http.Flusher, events <-chan generate.Event) {
	for evt := range events {
		b, _ := json.Marshal(evt)
		if _, err := fmt.Fprintf(bw, "data: %s\n\n", string(b)); err != nil {
			return
		}
		_ = bw.Flush()
		flusher.Flush()
	}
}

func writeGenerateError(w http.ResponseWriter, err error) {
	var reqErr generateRequestError
	if ok := errorAs(err, &reqErr); ok {
		writeError(w, reqErr.status, reqErr.message)
		return
	}
	writeError(w, http.StatusInternalServerError, "generation failed")
}

func errorAs(err error, target *generateRequestError) bool {
	reqErr, ok := err.(generateRequestError)
	if !ok {
		return false
	}
	*target = reqErr
	return true
}
