package agent

import (
	"context"
	"regexp"
	"strings"

	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/retrieval"
	"ai-policyqa-be/pkg/websearch"
)

// Capability is one entry in the static skill registry the tool agent
// answers capability questions from.
type Capability struct {
	Name        string
	Description string
}

func capabilityRegistry() []Capability {
	return []Capability{
		{Name: "policy_search", Description: "answer questions about payer, state, and program policy rules from the document corpus"},
		{Name: "web_search", Description: "search the public web when the corpus has no answer, on explicit request"},
		{Name: "page_fetch", Description: "fetch a specific web page on explicit request"},
	}
}

var (
	capabilityTriggers = []string{"what can you do", "your capabilities"}
	scrapeTriggers     = []string{"scrape", "fetch the page"}
	urlPattern         = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// resolveTool handles explicitly tool-routed sub-questions: capability
// questions come from the static registry, search and scrape run only on
// their trigger phrases. Nothing here touches the corpus.
func (r *Router) resolveTool(ctx context.Context, sub planner.SubQuestion) *Result {
	trigger := strings.ToLower(sub.CapabilitiesPrimary)

	for _, t := range capabilityTriggers {
		if trigger == t {
			return &Result{
				SubQuestionID: sub.ID,
				Answer:        capabilityAnswer(),
				Signal:        retrieval.SignalNoSources,
			}
		}
	}

	for _, t := range scrapeTriggers {
		if trigger == t {
			return r.resolveScrape(ctx, sub)
		}
	}

	return r.resolveWebSearch(ctx, sub)
}

func capabilityAnswer() string {
	var b strings.Builder
	b.WriteString("Here's what I can do:\n")
	for _, c := range capabilityRegistry() {
		b.WriteString("- ")
		b.WriteString(c.Description)
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Router) resolveWebSearch(ctx context.Context, sub planner.SubQuestion) *Result {
	if r.web == nil {
		return &Result{
			SubQuestionID: sub.ID,
			Answer:        "Web search isn't available right now.",
			Signal:        retrieval.SignalNoSources,
		}
	}
	snippets, err := r.web.Search(ctx, sub.Text)
	if err != nil || len(snippets) == 0 {
		if err != nil {
			r.logger.Warn("agent", "tool web search failed", map[string]interface{}{
				"sub_question": sub.ID,
				"error":        err.Error(),
			})
		}
		return &Result{
			SubQuestionID: sub.ID,
			Answer:        "The web search returned no results for that.",
			Signal:        retrieval.SignalNoSources,
		}
	}

	chunks := snippetChunks(snippets)
	prompt := buildGroundedPrompt(sub.Text, chunks)
	answer, usage, err := r.provider.Generate(ctx, prompt)
	if err != nil {
		answer = composeFallback
	}
	return &Result{
		SubQuestionID: sub.ID,
		Answer:        answer,
		Usage:         usage,
		Sources:       chunks,
		Signal:        retrieval.SignalGoogleOnly,
		CitedIndices:  ParseCitedIndices(answer, len(chunks)),
	}
}

func (r *Router) resolveScrape(ctx context.Context, sub planner.SubQuestion) *Result {
	url := urlPattern.FindString(sub.Text)
	if url == "" || r.web == nil {
		return &Result{
			SubQuestionID: sub.ID,
			Answer:        "To fetch a page I need its full URL.",
			Signal:        retrieval.SignalNoSources,
		}
	}

	body, err := r.web.Scrape(ctx, url)
	if err != nil || body == "" {
		if err != nil {
			r.logger.Warn("agent", "scrape failed", map[string]interface{}{
				"sub_question": sub.ID,
				"url":          url,
				"error":        err.Error(),
			})
		}
		return &Result{
			SubQuestionID: sub.ID,
			Answer:        "I couldn't fetch that page.",
			Signal:        retrieval.SignalNoSources,
		}
	}

	chunks := []retrieval.Chunk{{
		ID:              "web:" + url,
		Text:            body,
		DocumentName:    url,
		SourceType:      "google",
		ConfidenceLabel: retrieval.LabelProcessWithCaution,
	}}
	prompt := buildGroundedPrompt(sub.Text, chunks)
	answer, usage, err := r.provider.Generate(ctx, prompt)
	if err != nil {
		answer = composeFallback
	}
	return &Result{
		SubQuestionID: sub.ID,
		Answer:        answer,
		Usage:         usage,
		Sources:       chunks,
		Signal:        retrieval.SignalGoogleOnly,
		CitedIndices:  ParseCitedIndices(answer, len(chunks)),
	}
}

func snippetChunks(snippets []websearch.Snippet) []retrieval.Chunk {
	chunks := make([]retrieval.Chunk, 0, len(snippets))
	for _, s := range snippets {
		chunks = append(chunks, retrieval.Chunk{
			ID:              "web:" + s.URL,
			Text:            s.Text,
			DocumentName:    s.Title,
			SourceType:      "google",
			ConfidenceLabel: retrieval.LabelProcessWithCaution,
		})
	}
	return chunks
}
