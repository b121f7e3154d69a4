package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newChatServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func reply(w http.ResponseWriter, content string) {
	resp := chatResponse{}
	resp.Choices = append(resp.Choices, struct {
		Message message `json:"message"`
	}{Message: message{Role: "assistant", Content: content}})
	_ = json.NewEncoder(w).Encode(resp)
}

func TestGenerateReturnsCompletion(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, req chatRequest) {
		if req.Messages[0].Role != "system" {
			t.Errorf("first message role = %s, want system", req.Messages[0].Role)
		}
		reply(w, "Which button do I press, dear?")
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	got := e.Generate(context.Background(), "s1", "click the link to verify")
	if got != "Which button do I press, dear?" {
		t.Errorf("Generate = %q", got)
	}
}

func TestGenerateKeepsSessionHistory(t *testing.T) {
	var lastLen int
	srv := newChatServer(t, func(w http.ResponseWriter, req chatRequest) {
		lastLen = len(req.Messages)
		reply(w, "Oh my, one moment.")
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL})
	ctx := context.Background()

	e.Generate(ctx, "s1", "first")
	if lastLen != 2 { // system + user
		t.Errorf("first call sent %d messages, want 2", lastLen)
	}

	e.Generate(ctx, "s1", "second")
	if lastLen != 4 { // system + prior user/assistant + user
		t.Errorf("second call sent %d messages, want 4", lastLen)
	}

	// A different session starts fresh.
	e.Generate(ctx, "s2", "hello")
	if lastLen != 2 {
		t.Errorf("new session sent %d messages, want 2", lastLen)
	}
}

func TestGenerateHistoryBounded(t *testing.T) {
	var lastLen int
	srv := newChatServer(t, func(w http.ResponseWriter, req chatRequest) {
		lastLen = len(req.Messages)
		reply(w, "ok")
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL, History: 2})
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		e.Generate(ctx, "s1", "turn")
	}

	// system + at most 2 past turns (4 messages) + current user
	if lastLen > 6 {
		t.Errorf("sent %d messages, history not trimmed", lastLen)
	}
}

func TestHistoryBoundedAcrossSessions(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, _ chatRequest) {
		reply(w, "ok")
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL, MaxSessions: 50})
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		e.Generate(ctx, fmt.Sprintf("s%d", i), "hello")
	}

	if got := e.historyLen(); got > 50 {
		t.Errorf("history holds %d sessions after 200 distinct sessions, cap is 50", got)
	}

	// The oldest sessions were evicted; a revisit starts a fresh
	// conversation rather than resuming one.
	var lastLen int
	srv2 := newChatServer(t, func(w http.ResponseWriter, req chatRequest) {
		lastLen = len(req.Messages)
		reply(w, "ok")
	})
	e2 := NewEngine(Config{APIKey: "test-key", BaseURL: srv2.URL, MaxSessions: 2})
	e2.Generate(ctx, "a", "first")
	e2.Generate(ctx, "b", "first")
	e2.Generate(ctx, "c", "first") // evicts "a"
	e2.Generate(ctx, "a", "back again")
	if lastLen != 2 { // system + user, no resumed history
		t.Errorf("evicted session resumed with %d messages, want 2", lastLen)
	}
}

func TestHistoryTouchProtectsActiveSession(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, _ chatRequest) {
		reply(w, "ok")
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL, MaxSessions: 2})
	ctx := context.Background()
	e.Generate(ctx, "keep", "one")
	e.Generate(ctx, "drop", "one")
	e.Generate(ctx, "keep", "two") // touches "keep" ahead of "drop"
	e.Generate(ctx, "new", "one")  // evicts "drop", not "keep"

	e.mu.Lock()
	_, keptOK := e.history["keep"]
	_, droppedOK := e.history["drop"]
	e.mu.Unlock()
	if !keptOK {
		t.Error("recently used session was evicted")
	}
	if droppedOK {
		t.Error("least recently used session survived eviction")
	}
}

func TestGenerateFallsBackWithoutAPIKey(t *testing.T) {
	e := NewEngine(Config{})

	got := e.Generate(context.Background(), "s1", "hello")
	if !isFallback(got) {
		t.Errorf("Generate without key = %q, want a fallback line", got)
	}
}

func TestGenerateFallsBackOnServerError(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, _ chatRequest) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL})
	got := e.Generate(context.Background(), "s1", "hello")
	if !isFallback(got) {
		t.Errorf("Generate on 500 = %q, want a fallback line", got)
	}
}

func TestGenerateFallsBackOnTimeout(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, _ chatRequest) {
		time.Sleep(200 * time.Millisecond)
		reply(w, "too late")
	})

	e := NewEngine(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	got := e.Generate(context.Background(), "s1", "hello")
	if !isFallback(got) {
		t.Errorf("Generate on timeout = %q, want a fallback line", got)
	}
}

func TestFallbackRotation(t *testing.T) {
	e := NewEngine(Config{})
	ctx := context.Background()

	first := e.Generate(ctx, "s1", "a")
	second := e.Generate(ctx, "s1", "b")
	if first == second {
		t.Errorf("consecutive fallbacks identical: %q", first)
	}
}

func TestLoadProfile(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		p, err := LoadProfile("")
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "Arthur" || len(p.Fallbacks) == 0 {
			t.Errorf("default profile = %+v", p)
		}
	})

	t.Run("partial yaml keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.yaml")
		if err := os.WriteFile(path, []byte("name: Margaret\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		p, err := LoadProfile(path)
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "Margaret" {
			t.Errorf("name = %s, want Margaret", p.Name)
		}
		if p.SystemPrompt == "" || len(p.Fallbacks) == 0 {
			t.Error("unset fields should keep built-in defaults")
		}
	})
}

func isFallback(s string) bool {
	for _, f := range defaultFallbacks {
		if s == f {
			return true
		}
	}
	return false
}
