package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/retrieval"
)

const notFoundAnswer = "I couldn't find anything in the available policy documents that " +
	"answers this question. You may want to rephrase it, or name the specific payer and " +
	"program it concerns."

// resolveRAG retrieves context, generates a grounded answer, and parses the
// citation markers back out. The fail directive is consulted only when
// retrieval produced zero usable chunks.
func (r *Router) resolveRAG(ctx context.Context, sub planner.SubQuestion, entry planner.BlueprintEntry) *Result {
	retrieved := r.assembler.Retrieve(ctx, sub.Text, sub.IntentScore, entry.RAGK)

	if len(retrieved.Chunks) == 0 {
		return r.resolveRAGFail(ctx, sub)
	}

	prompt := buildGroundedPrompt(sub.Text, retrieved.Chunks)
	answer, usage, err := r.provider.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("agent", "grounded generation failed", map[string]interface{}{
			"sub_question": sub.ID,
			"error":        err.Error(),
		})
		return &Result{
			SubQuestionID: sub.ID,
			Answer:        composeFallback,
			Sources:       retrieved.Chunks,
			Signal:        retrieved.Signal,
		}
	}

	return &Result{
		SubQuestionID: sub.ID,
		Answer:        answer,
		Usage:         usage,
		Sources:       retrieved.Chunks,
		Signal:        retrieved.Signal,
		CitedIndices:  ParseCitedIndices(answer, len(retrieved.Chunks)),
	}
}

// resolveRAGFail runs when retrieval (including its own external fallback)
// came back empty. A "google_search" directive escalates to one direct
// external search; anything else is an honest not-found answer.
func (r *Router) resolveRAGFail(ctx context.Context, sub planner.SubQuestion) *Result {
	for _, directive := range sub.OnRAGFail {
		if directive != "google_search" || r.web == nil {
			continue
		}
		snippets, err := r.web.Search(ctx, sub.Text)
		if err != nil {
			r.logger.Warn("agent", "fail-directive search failed", map[string]interface{}{
				"sub_question": sub.ID,
				"error":        err.Error(),
			})
			break
		}
		if len(snippets) == 0 {
			break
		}
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

	return &Result{
		SubQuestionID: sub.ID,
		Answer:        notFoundAnswer,
		Signal:        retrieval.SignalNoSources,
	}
}

// buildGroundedPrompt numbers the sources and instructs bracketed citations.
func buildGroundedPrompt(question string, chunks []retrieval.Chunk) string {
	var prompt strings.Builder

	prompt.WriteString("<reference_material>\n")
	for i, c := range chunks {
		fmt.Fprintf(&prompt, "[%d]", i+1)
		if c.DocumentName != "" {
			fmt.Fprintf(&prompt, " (%s", c.DocumentName)
			if c.PageNumber > 0 {
				fmt.Fprintf(&prompt, ", p.%d", c.PageNumber)
			}
			prompt.WriteString(")")
		}
		prompt.WriteString("\n")
		prompt.WriteString(c.Text)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</reference_material>\n\n")

	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a policy analyst answering questions about insurance and program rules.\n")
	prompt.WriteString("Answer strictly from the numbered reference material above.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Cite every factual statement with the source number in brackets, e.g. [2]\n")
	prompt.WriteString("2. If the material does not cover something, say so instead of guessing\n")
	prompt.WriteString("3. Keep the answer specific to the jurisdiction named in the question\n")
	prompt.WriteString("4. Be concise; lead with the direct answer\n")
	prompt.WriteString("</guidelines>\n\n")

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now provide your answer with citations:")
	return prompt.String()
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ParseCitedIndices extracts the 0-based indices of sources the answer
// cites, deduped and sorted. Markers outside [1, n] are ignored.
func ParseCitedIndices(answer string, n int) []int {
	seen := make(map[int]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		num, err := strconv.Atoi(match[1])
		if err != nil || num < 1 || num > n {
			continue
		}
		seen[num-1] = true
	}
	if len(seen) == 0 {
		return nil
	}
	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}
