/*
Package ai implements the per-room AI responder: a growing conversation
transcript plus a synchronous call to an external language-model inference
endpoint (Ollama-style generate API).
*/
package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tlschat/internal/pkg/logx"
)

// DefaultPrompt is used when a room is created as an AI room with a blank
// prompt.
const DefaultPrompt = "General Chat"

// Config holds the inference endpoint settings shared by all responders.
type Config struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Responder holds one room's fixed system prompt and its ordered transcript
// of user/bot turns. The transcript only grows; it is replayed verbatim as
// context on every call.
type Responder struct {
	prompt   string
	mu       sync.Mutex
	turns    []string
	client   *http.Client
	endpoint string
	model    string
	logger   zerolog.Logger
}

// generateRequest is the JSON body sent to the inference endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the relevant part of the endpoint's JSON reply.
type generateResponse struct {
	Response string `json:"response"`
}

// NewResponder creates a responder for one room. The http.Client timeout
// bounds the external round trip so a stalled endpoint cannot hang the room
// indefinitely.
func NewResponder(cfg Config, prompt string) *Responder {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &Responder{
		prompt:   prompt,
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logx.Logger().With().Str("component", "AIResponder").Str("model", cfg.Model).Logger(),
	}
}

// Prompt returns the room's fixed system prompt.
func (r *Responder) Prompt() string {
	return r.prompt
}

// Respond appends the user turn, sends the rendered transcript to the
// inference endpoint, appends the bot turn, and returns the reply. A failed
// call never propagates as an error to the room: it yields a user-visible
// error string that is logged and recorded in the transcript like any other
// bot message, so subsequent calls see an unbroken history.
func (r *Responder) Respond(userMessage string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.turns = append(r.turns, "User: "+userMessage)

	reply, err := r.complete(r.renderPrompt())
	if err != nil {
		r.logger.Error().Err(err).Msg("Inference call failed.")
		reply = fmt.Sprintf("[Error: Failed to get AI response. %v]", err)
	}

	r.turns = append(r.turns, "Bot: "+reply)

	return reply
}

// renderPrompt builds the full prompt: the system prompt, a blank line, then
// every turn so far in order. Callers must hold r.mu.
func (r *Responder) renderPrompt() string {
	var b strings.Builder
	b.WriteString(r.prompt)
	b.WriteString("\n\n")
	for _, turn := range r.turns {
		b.WriteString(turn)
		b.WriteString("\n")
	}
	return b.String()
}

// complete performs one synchronous inference call and extracts the reply
// field. JSON marshaling escapes control characters and quotes in the
// rendered prompt.
func (r *Responder) complete(fullPrompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: fullPrompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("encode inference request: %w", err)
	}

	resp, err := r.client.Post(r.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("inference call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("inference call failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}

	return decoded.Response, nil
}
