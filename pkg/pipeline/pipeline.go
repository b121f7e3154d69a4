// Package pipeline orchestrates the per-message decision flow: session
// check, indicator store probe, classifier, then engagement or a
// neutral acknowledgement. Detection tiers are ordered cheapest first
// and short-circuit; only a classifier positive writes to the store, so
// persisted confidence always comes from the detection that produced it.
package pipeline

import (
	"context"
	"log"

	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/guard"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/intel"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/memory"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/store"
)

// Verdict is the terminal state for one incoming message.
type Verdict int

const (
	Clean Verdict = iota
	EngagedSession
	EngagedKnown
	EngagedClassifier
)

// ThreatSource returns the wire label for the verdict.
func (v Verdict) ThreatSource() string {
	switch v {
	case EngagedSession:
		return "ongoing_session"
	case EngagedKnown:
		return "known_database"
	case EngagedClassifier:
		return "ai_guard"
	default:
		return "clean"
	}
}

// cleanReply is the fixed acknowledgement for non-threat traffic.
const cleanReply = "Message received (Safe)."

// Responder produces the decoy reply for an engaged exchange.
type Responder interface {
	Generate(ctx context.Context, sessionID, text string) string
}

// Result is the outcome of handling one message.
type Result struct {
	Verdict      Verdict
	Reply        string
	Intelligence intel.Bundle
	Engaged      bool
	ThreatSource string
	Confidence   float64
}

// Pipeline wires the detection tiers to the engagement side. All
// dependencies are injected; none may be nil except the store, which
// downgrades the known-database tier to a no-op.
type Pipeline struct {
	extractor  *intel.Extractor
	sessions   *memory.Sessions
	activity   *memory.Activity
	threats    store.Store
	classifier guard.Classifier
	persona    Responder
}

// New creates a pipeline. The classifier is wrapped in a panic-recovery
// failsafe so a misbehaving strategy degrades to clean instead of
// killing the request.
func New(extractor *intel.Extractor, sessions *memory.Sessions, activity *memory.Activity, threats store.Store, classifier guard.Classifier, persona Responder) *Pipeline {
	if extractor == nil {
		extractor = intel.NewExtractor(nil)
	}
	return &Pipeline{
		extractor:  extractor,
		sessions:   sessions,
		activity:   activity,
		threats:    threats,
		classifier: guard.NewFailsafe(classifier),
		persona:    persona,
	}
}

// Handle runs one message through detection and engagement. It always
// returns a usable Result; backend failures degrade tier by tier
// rather than erroring the exchange.
func (p *Pipeline) Handle(ctx context.Context, sessionID, rawMessage string) Result {
	text := intel.Normalize(rawMessage)
	bundle := p.extractor.Extract(text)

	domains := make([]string, 0, len(bundle.Links))
	for _, link := range bundle.Links {
		if d := intel.Domain(link); d != "" {
			domains = append(domains, d)
		}
	}

	verdict := Clean
	confidence := 0.0

	// Tier A: a session already engaged stays engaged.
	if p.sessions.Get(sessionID) != nil {
		verdict = EngagedSession
	}

	// Tier B: any extracted domain or email already in the store.
	if verdict == Clean && p.threats != nil {
		if rec := p.probe(ctx, domains, bundle.Emails); rec != nil {
			verdict = EngagedKnown
			confidence = rec.Confidence
		}
	}

	// Tier C: classifier on the full text. The only tier that writes
	// to the store, so it only grows from novel detections.
	if verdict == Clean {
		if isScam, score := p.classifier.Predict(ctx, text); isScam {
			verdict = EngagedClassifier
			confidence = score
			p.record(ctx, domains, bundle, score)
		}
	}

	if verdict == Clean {
		return Result{
			Verdict:      Clean,
			Reply:        cleanReply,
			Intelligence: bundle,
			ThreatSource: Clean.ThreatSource(),
		}
	}

	p.sessions.Touch(sessionID)
	reply := p.persona.Generate(ctx, sessionID, rawMessage)

	if p.activity != nil {
		p.activity.Append(memory.ActivityEntry{
			SessionID:    sessionID,
			ScammerMsg:   rawMessage,
			BotResponse:  reply,
			Intelligence: bundle,
			ThreatSource: verdict.ThreatSource(),
		})
	}

	return Result{
		Verdict:      verdict,
		Reply:        reply,
		Intelligence: bundle,
		Engaged:      true,
		ThreatSource: verdict.ThreatSource(),
		Confidence:   confidence,
	}
}

// Activity exposes the dashboard log snapshot.
func (p *Pipeline) Activity() []memory.ActivityEntry {
	if p.activity == nil {
		return nil
	}
	return p.activity.Snapshot()
}

// probe checks domains then emails, in extraction order, returning the
// first stored record. Lookup errors are treated as a miss so a dead
// store cannot block detection by the later tiers.
func (p *Pipeline) probe(ctx context.Context, domains, emails []string) *store.ThreatRecord {
	for _, indicator := range append(append([]string{}, domains...), emails...) {
		rec, err := p.threats.Lookup(ctx, indicator)
		if err != nil {
			log.Printf("[PIPELINE] store lookup failed for %q, treating as unknown: %v", indicator, err)
			continue
		}
		if rec != nil {
			return rec
		}
	}
	return nil
}

// record upserts every harvested domain, email and phone number at the
// classifier's confidence. Write failures are logged and skipped; the
// engagement decision already stands.
func (p *Pipeline) record(ctx context.Context, domains []string, bundle intel.Bundle, confidence float64) {
	if p.threats == nil {
		return
	}
	upsert := func(indicator string, kind store.Kind) {
		if err := p.threats.Upsert(ctx, indicator, kind, confidence); err != nil {
			log.Printf("[PIPELINE] store upsert failed for %q: %v", indicator, err)
		}
	}
	for _, d := range domains {
		upsert(d, store.KindScamURL)
	}
	for _, e := range bundle.Emails {
		upsert(e, store.KindScamEmail)
	}
	for _, ph := range bundle.PhoneNumbers {
		upsert(ph, store.KindScamPhone)
	}
}
