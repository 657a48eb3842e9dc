package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fbruckner/takt/internal/knn"
	"github.com/fbruckner/takt/internal/observe"
)

// Generator is the generative classifier contract: a fixed system
// instruction plus a user phrase produce free text expected to contain one
// JSON object. Satisfied by [pkg/provider/llm.Provider] implementations.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// ExampleStore is the slice of the example corpus the parser needs.
// *knn.Store satisfies it.
type ExampleStore interface {
	Search(ctx context.Context, phrase string, k int) ([]knn.Match, error)
	Add(ctx context.Context, phrase, intentName string, slots map[string]any) error
}

// Thresholds are the tier boundaries of the decision cascade.
type Thresholds struct {
	// KNNAuto: nearest-match similarity at or above this applies immediately.
	KNNAuto float64

	// KNNSuggest: similarity at or above this is offered for confirmation.
	KNNSuggest float64

	// LLMAutoConf: LLM confidence at or above this applies immediately.
	LLMAutoConf float64
}

// DefaultThresholds returns the stock tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{KNNAuto: 0.85, KNNSuggest: 0.65, LLMAutoConf: 0.8}
}

// Parser resolves a transcribed phrase into a normalized intent through the
// tiered cascade: example-store nearest match, then generative fallback with
// one strict retry, then rejection. Every successful parse passes through
// [Normalize] before being returned.
//
// Parser is safe for concurrent use; it holds no mutable state of its own.
type Parser struct {
	store   ExampleStore
	llm     Generator
	th      Thresholds
	metrics *observe.Metrics
}

// NewParser wires the cascade. Thresholds outside (0,1] fall back to the
// defaults so a zero-value config cannot disable the suggest band.
func NewParser(store ExampleStore, llm Generator, th Thresholds) *Parser {
	def := DefaultThresholds()
	if th.KNNAuto <= 0 || th.KNNAuto > 1 {
		th.KNNAuto = def.KNNAuto
	}
	if th.KNNSuggest <= 0 || th.KNNSuggest > 1 {
		th.KNNSuggest = def.KNNSuggest
	}
	if th.LLMAutoConf <= 0 || th.LLMAutoConf > 1 {
		th.LLMAutoConf = def.LLMAutoConf
	}
	return &Parser{store: store, llm: llm, th: th, metrics: observe.DefaultMetrics()}
}

// Parse resolves phrase to a normalized intent and the tier that accepted
// it. An empty phrase, or a phrase neither the example store nor the
// classifier can resolve, yields (UNKNOWN, TierUnknown). Errors from the
// example store are logged and demoted to the generative path; classifier
// errors end the cascade as unknown — parsing is best-effort, never fatal.
func (p *Parser) Parse(ctx context.Context, phrase string) (Intent, Tier) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return Unknown(), TierUnknown
	}

	// Tier 1/2: nearest match against the example corpus.
	matches, err := p.store.Search(ctx, phrase, 1)
	if err != nil {
		slog.Warn("example search failed, falling through to classifier", "err", err)
	}
	if len(matches) > 0 {
		m := matches[0]
		if m.Similarity >= p.th.KNNAuto {
			return Normalize(m.Intent, m.Slots, m.Similarity), TierKNNAuto
		}
		if m.Similarity >= p.th.KNNSuggest {
			return Normalize(m.Intent, m.Slots, m.Similarity), TierKNNSuggest
		}
	}

	// Tier 3: generative fallback.
	raw, err := p.generate(ctx, userPrompt(phrase))
	if err != nil {
		slog.Warn("classifier call failed", "err", err)
		return Unknown(), TierUnknown
	}
	if data, ok := ExtractJSON(raw); ok {
		in := normalizeClassifierResult(data)
		if in.Confidence >= p.th.LLMAutoConf {
			return in, TierLLMAuto
		}
		return in, TierLLMSuggest
	}

	// One strict-mode retry; a success here is never trusted for auto-apply.
	raw, err = p.generate(ctx, strictRetryPrefix+userPrompt(phrase))
	if err != nil {
		slog.Warn("classifier retry failed", "err", err)
		return Unknown(), TierUnknown
	}
	if data, ok := ExtractJSON(raw); ok {
		return normalizeClassifierResult(data), TierLLMSuggest
	}

	return Unknown(), TierUnknown
}

// generate runs one classifier call and records its latency.
func (p *Parser) generate(ctx context.Context, user string) (string, error) {
	start := time.Now()
	raw, err := p.llm.Generate(ctx, systemPrompt, user)
	p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	return raw, err
}

// LearnCorrection appends an example mapping the original rejected phrase to
// the corrected intent. This is the feedback loop: the next time the
// performer says the same thing, the nearest match resolves it directly.
func (p *Parser) LearnCorrection(ctx context.Context, originalPhrase string, corrected Intent) error {
	if err := p.store.Add(ctx, originalPhrase, string(corrected.Name), corrected.Slots.Map()); err != nil {
		return fmt.Errorf("learn correction: %w", err)
	}
	return nil
}

// normalizeClassifierResult converts the decoded classifier object into a
// normalized Intent. Missing confidence defaults to 0.5 — present but
// unquantified output sits in the suggest band.
func normalizeClassifierResult(data map[string]any) Intent {
	name := rawString(data, "intent")
	slots, _ := data["slots"].(map[string]any)
	conf := 0.5
	if c, ok := rawFloat(data, "confidence"); ok {
		conf = clamp(c, 0, 1)
	}
	return Normalize(name, slots, conf)
}
