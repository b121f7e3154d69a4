package guard

// semantic.go - embedding similarity against known scam scripts.
//
// Fraud campaigns reuse scripts: the same "your parcel is held at
// customs" opener shows up across thousands of numbers with light
// paraphrasing that defeats exact phrase lists. This strategy embeds a
// reference corpus of known scripts into an in-process chromem-go
// collection and flags messages whose nearest neighbour exceeds a
// similarity threshold.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/config"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/httputil"
)

// defaultScamScripts seeds the reference corpus when no rule pack
// provides scam_scripts. One entry per campaign family.
var defaultScamScripts = []ScamScript{
	{Text: "your bank account has been suspended, verify your identity immediately to restore access", Category: "bank_phishing"},
	{Text: "dear customer your kyc will expire today, update now to avoid blocking of your account", Category: "kyc_expiry"},
	{Text: "congratulations you have won the lottery, pay a small processing fee to claim your prize", Category: "lottery"},
	{Text: "your parcel is held at customs, pay the clearance charge using this link", Category: "parcel"},
	{Text: "this is an urgent message from your bank, your debit card has been blocked", Category: "card_block"},
	{Text: "you are eligible for an instant tax refund, share your account details to receive it", Category: "refund"},
	{Text: "i am contacting you about an unclaimed inheritance, i need your help to transfer the funds", Category: "advance_fee"},
	{Text: "your electricity will be disconnected tonight, call this number immediately to pay the pending bill", Category: "utility"},
	{Text: "work from home and earn five thousand daily, registration fee is only a small amount", Category: "job_offer"},
	{Text: "i saw your profile and felt a connection, i want to send you a gift but the courier needs a fee", Category: "romance"},
}

// Semantic flags messages by nearest-neighbour similarity to the
// script corpus.
type Semantic struct {
	db         *chromem.DB
	collection *chromem.Collection
	threshold  float32
	mu         sync.RWMutex
	ready      bool
}

// newOllamaEmbeddingFunc builds a chromem embedding function backed by
// Ollama's /api/embeddings endpoint.
func newOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.Client(httputil.TierMedium)

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody, err := json.Marshal(map[string]string{
			"model":  model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embeddings", bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("create embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embedding request returned %s", resp.Status)
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		return result.Embedding, nil
	}
}

// NewSemantic creates the strategy with an Ollama embedding backend.
// Call LoadScripts before first use.
func NewSemantic(ollamaURL string) (*Semantic, error) {
	db := chromem.NewDB()

	embedModel := config.GetEnv("HONEYPOT_EMBED_MODEL", "embeddinggemma")
	collection, err := db.CreateCollection("scam_scripts", nil, newOllamaEmbeddingFunc(embedModel, ollamaURL))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Semantic{
		db:         db,
		collection: collection,
		threshold:  float32(config.GetEnvFloat("HONEYPOT_SEMANTIC_THRESHOLD", 0.72)),
	}, nil
}

// LoadScripts embeds the reference corpus. Pass nil to use the
// built-in scripts. Requires the embedding backend to be reachable.
func (s *Semantic) LoadScripts(ctx context.Context, scripts []ScamScript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(scripts) == 0 {
		scripts = defaultScamScripts
	}

	docs := make([]chromem.Document, len(scripts))
	for i, script := range scripts {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("script_%d", i),
			Content:  script.Text,
			Metadata: map[string]string{"category": script.Category},
		}
	}

	// Sequential add: local embedding servers choke on parallel batches.
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add scripts: %w", err)
	}

	s.ready = true
	return nil
}

// IsReady reports whether the corpus is embedded and queryable.
func (s *Semantic) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Semantic) Name() string { return "semantic" }

// Predict queries the nearest known script. Any failure, including a
// not-ready corpus, degrades to the safe default (false, 0).
func (s *Semantic) Predict(ctx context.Context, text string) (bool, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return false, 0.0
	}

	results, err := s.collection.Query(ctx, strings.ToLower(text), 1, nil, nil)
	if err != nil {
		log.Printf("[GUARD] semantic query failed, degrading to clean: %v", err)
		return false, 0.0
	}
	if len(results) == 0 {
		return false, 0.0
	}

	best := results[0]
	if best.Similarity < s.threshold {
		return false, 0.0
	}
	return true, float64(best.Similarity)
}
