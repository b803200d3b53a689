package planner

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies who a sub-question is about.
type Kind string

const (
	KindPatient    Kind = "patient"
	KindNonPatient Kind = "non_patient"
	KindTool       Kind = "tool"
)

// Intent distinguishes canonical process questions from fact lookups.
type Intent string

const (
	IntentCanonical Intent = "canonical"
	IntentFactual   Intent = "factual"
)

// SubQuestion is one unit of work produced by decomposition. Immutable once
// the plan is built; the blueprint derives from it without mutating it.
type SubQuestion struct {
	ID                  string
	Text                string
	Kind                Kind
	QuestionIntent      Intent
	IntentScore         float64
	OnRAGFail           []string
	CapabilitiesPrimary string
}

// Plan is the ordered decomposition of one user message.
type Plan struct {
	SubQuestions []SubQuestion
	Fallback     bool
}

// Config tunes decomposition. Zero value is unusable; use DefaultConfig.
type Config struct {
	Separators      []string
	PatientKeywords []string
	ToolTriggers    []string
}

// DefaultConfig returns the decomposition defaults.
func DefaultConfig() Config {
	return Config{
		Separators: []string{" and also ", " and ", " also ", " then ", "; "},
		PatientKeywords: []string{
			"my claim", "my record", "my account", "my coverage", "my eligibility",
			"my member", "my benefits", "my bill", "my appeal status",
		},
		ToolTriggers: []string{
			"search the web", "look up online", "google", "scrape", "fetch the page",
			"what can you do", "your capabilities",
		},
	}
}

// Planner splits a message into ordered sub-questions and classifies each.
type Planner struct {
	cfg Config
}

// New creates a planner with the given config.
func New(cfg Config) *Planner {
	if len(cfg.Separators) == 0 {
		cfg = DefaultConfig()
	}
	return &Planner{cfg: cfg}
}

// Decompose splits the message on the configured separators and classifies
// each fragment. It never fails: any fault collapses to a single
// non_patient sub-question carrying the raw message, so the pipeline is
// never blocked by a planner fault.
func (p *Planner) Decompose(message string) *Plan {
	plan, err := p.decompose(message)
	if err != nil || plan == nil || len(plan.SubQuestions) == 0 {
		return p.FallbackPlan(message)
	}
	return plan
}

func (p *Planner) decompose(message string) (*Plan, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, fmt.Errorf("empty message")
	}

	fragments := []string{trimmed}
	for _, sep := range p.cfg.Separators {
		var next []string
		for _, frag := range fragments {
			next = append(next, splitKeepNonEmpty(frag, sep)...)
		}
		fragments = next
	}
	if len(fragments) == 0 {
		fragments = []string{trimmed}
	}

	plan := &Plan{}
	for i, frag := range fragments {
		sub := p.classify(frag)
		sub.ID = fmt.Sprintf("sq-%d", i+1)
		plan.SubQuestions = append(plan.SubQuestions, sub)
	}
	return plan, nil
}

// FallbackPlan is the single-subquestion plan used when decomposition faults.
func (p *Planner) FallbackPlan(message string) *Plan {
	return &Plan{
		Fallback: true,
		SubQuestions: []SubQuestion{{
			ID:             "sq-1",
			Text:           strings.TrimSpace(message),
			Kind:           KindNonPatient,
			QuestionIntent: IntentCanonical,
			IntentScore:    0.5,
		}},
	}
}

func (p *Planner) classify(fragment string) SubQuestion {
	lower := strings.ToLower(fragment)

	kind := KindNonPatient
	for _, kw := range p.cfg.PatientKeywords {
		if strings.Contains(lower, kw) {
			kind = KindPatient
			break
		}
	}
	capability := ""
	if kind != KindPatient {
		for _, trigger := range p.cfg.ToolTriggers {
			if strings.Contains(lower, trigger) {
				kind = KindTool
				capability = trigger
				break
			}
		}
	}

	score := scoreIntent(lower)
	intent := IntentCanonical
	var onFail []string
	if score >= 0.5 {
		intent = IntentFactual
		onFail = []string{"google_search"}
	}

	return SubQuestion{
		Text:                strings.TrimSpace(fragment),
		Kind:                kind,
		QuestionIntent:      intent,
		IntentScore:         score,
		OnRAGFail:           onFail,
		CapabilitiesPrimary: capability,
	}
}

var (
	factualMarkers = []string{
		"how much", "how many", "what is the limit", "deadline", "timely filing",
		"rate", "fee", "code", "cpt", "icd", "threshold", "maximum", "minimum",
		"effective date", "how long", "number of days", "within",
	}
	canonicalMarkers = []string{
		"how do i", "how to", "process", "steps", "procedure", "workflow",
		"submit", "file an", "who do i", "where do i", "requirements",
	}
	digitPattern = regexp.MustCompile(`\d`)
)

// scoreIntent maps a fragment onto [0,1]: 0 is a canonical process question,
// 1 a pure fact lookup. Marker hits pull the score toward the ends.
func scoreIntent(lower string) float64 {
	score := 0.5
	for _, m := range factualMarkers {
		if strings.Contains(lower, m) {
			score += 0.2
		}
	}
	for _, m := range canonicalMarkers {
		if strings.Contains(lower, m) {
			score -= 0.2
		}
	}
	if digitPattern.MatchString(lower) {
		score += 0.1
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func splitKeepNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{s}
	}
	return out
}
