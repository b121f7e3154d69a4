// Package persona generates in-character decoy replies that keep a
// suspected scammer talking. The engine calls an OpenAI-compatible
// chat-completions API (Groq by default) and never fails past its
// boundary: any internal error resolves to a fixed in-character
// fallback line, so the pipeline always gets a usable reply.
package persona

import (
	"bytes"
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/httputil"
)

// defaultSystemPrompt is the Arthur persona: a confused, polite decoy
// that wastes scammer time without ever completing a payment.
const defaultSystemPrompt = `You are Arthur, a 78-year-old retired accountant.
You are currently chatting with someone on your computer.
You are slightly confused by technology, slow to type, and very polite.
You WANT to help, but you need things explained simply.

CRITICAL RULES:
1. Never admit you are an AI.
2. Keep responses short (under 2 sentences).
3. Act confused about links. Ask "which button?" or "is it the blue one?".
4. If they ask for money, say you need to find your checkbook or ask for their "mailing address" instead of digital transfer.
5. VARY YOUR RESPONSES. Do not repeat phrases.`

// defaultFallbacks are returned verbatim, in rotation, whenever the
// upstream generator cannot be reached. They must stay in character.
var defaultFallbacks = []string{
	"Oh dear, my computer screen is flickering. One moment...",
	"I am sorry, young man. My hearing aid is buzzing again. What did you say?",
	"Hold on, I need to find my reading glasses. These letters are so small.",
}

// Config configures the engine.
type Config struct {
	APIKey      string        // Empty disables the upstream call (fallbacks only)
	BaseURL     string        // OpenAI-compatible endpoint, e.g. https://api.groq.com/openai/v1
	Model       string        // Chat model identifier
	Timeout     time.Duration // Per-generation deadline (default 30s)
	MaxInFlight int           // Concurrent generation cap (default 64)
	History     int           // Conversation turns kept per session (default 10)
	MaxSessions int           // Distinct session histories kept (default 500)
	Profile     *Profile      // nil uses the built-in Arthur profile
}

// Engine produces decoy replies, holding a short rolling conversation
// history per session so the persona stays coherent across turns. The
// history cache is recency-bounded like the session table: a scammer
// rotating session ids evicts stale conversations instead of growing
// the process.
type Engine struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	profile     Profile
	sem         *httputil.Semaphore
	maxTurns    int
	maxSessions int

	mu       sync.Mutex
	history  map[string]*list.Element
	order    *list.List // front = most recently used
	fallback atomic.Uint64
}

type historyEntry struct {
	id    string
	turns []message
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// NewEngine creates the persona engine. It never fails: a missing API
// key just means every reply is a fallback line.
func NewEngine(cfg Config) *Engine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight == 0 {
		maxInFlight = 64
	}
	maxTurns := cfg.History
	if maxTurns <= 0 {
		maxTurns = 10
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 500
	}

	profile := DefaultProfile()
	if cfg.Profile != nil {
		profile = cfg.Profile.withDefaults()
	}

	model := cfg.Model
	if profile.Model != "" {
		model = profile.Model
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}

	if cfg.APIKey == "" {
		log.Printf("[PERSONA] Warning: no API key configured - %s will only use fallback lines", profile.Name)
	}

	return &Engine{
		client:      httputil.NewClient(timeout),
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		profile:     profile,
		sem:         httputil.NewSemaphore(maxInFlight),
		maxTurns:    maxTurns,
		maxSessions: maxSessions,
		history:     make(map[string]*list.Element, maxSessions),
		order:       list.New(),
	}
}

// Generate returns the persona's reply to message within sessionID's
// conversation. It never returns an error and never panics: upstream
// failure, saturation and bad payloads all degrade to a fallback line.
func (e *Engine) Generate(ctx context.Context, sessionID, text string) string {
	if e.apiKey == "" {
		return e.nextFallback()
	}
	if !e.sem.TryAcquire() {
		log.Printf("[PERSONA] generation capacity saturated (%d in flight), using fallback", e.sem.InFlight())
		return e.nextFallback()
	}
	defer e.sem.Release()

	msgs := e.buildMessages(sessionID, text)

	reply, err := e.complete(ctx, msgs)
	if err != nil {
		log.Printf("[PERSONA] generation failed for session %s: %v", sessionID, err)
		return e.nextFallback()
	}

	e.recordTurn(sessionID, text, reply)
	return reply
}

// buildMessages assembles system prompt + rolling history + new turn,
// touching the session to most-recently-used. Holds the history lock
// only while copying, never across the HTTP call.
func (e *Engine) buildMessages(sessionID, userMsg string) []message {
	e.mu.Lock()
	defer e.mu.Unlock()

	var past []message
	if elem, ok := e.history[sessionID]; ok {
		e.order.MoveToFront(elem)
		past = elem.Value.(*historyEntry).turns
	}
	msgs := make([]message, 0, len(past)+2)
	msgs = append(msgs, message{Role: "system", Content: e.profile.SystemPrompt})
	msgs = append(msgs, past...)
	msgs = append(msgs, message{Role: "user", Content: userMsg})
	return msgs
}

// recordTurn appends the exchange to the session's history. Inserting a
// new session at capacity evicts the least-recently-used conversation,
// so the cache never outgrows the session table it shadows.
func (e *Engine) recordTurn(sessionID, userMsg, reply string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var entry *historyEntry
	if elem, ok := e.history[sessionID]; ok {
		e.order.MoveToFront(elem)
		entry = elem.Value.(*historyEntry)
	} else {
		if e.order.Len() >= e.maxSessions {
			oldest := e.order.Back()
			if oldest != nil {
				e.order.Remove(oldest)
				delete(e.history, oldest.Value.(*historyEntry).id)
			}
		}
		entry = &historyEntry{id: sessionID}
		e.history[sessionID] = e.order.PushFront(entry)
	}

	turns := append(entry.turns,
		message{Role: "user", Content: userMsg},
		message{Role: "assistant", Content: reply},
	)
	// Two messages per turn.
	if limit := e.maxTurns * 2; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	entry.turns = turns
}

// historyLen reports the number of sessions with cached conversation.
func (e *Engine) historyLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order.Len()
}

func (e *Engine) complete(ctx context.Context, msgs []message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       e.model,
		Messages:    msgs,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned %s", resp.Status)
	}

	data, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}

// nextFallback rotates through the profile's fallback lines so a dead
// upstream does not make the persona repeat itself every message.
func (e *Engine) nextFallback() string {
	n := e.fallback.Add(1) - 1
	lines := e.profile.Fallbacks
	return lines[n%uint64(len(lines))]
}
