package pipeline

import (
	"strings"
	"time"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/llm"
	"ai-policyqa-be/pkg/retrieval"
)

// integrate folds the per-sub-question results into the one completed
// payload: answers joined in declared order, sources concatenated and
// deduped (first occurrence wins), citations re-offset onto the combined
// source list, usage and cost rolled up, and an overall confidence badge
// derived from the best corpus score.
func (o *Orchestrator) integrate(rc *RunContext, msg dto.AskMessage) *dto.ResponsePayload {
	o.thinking(rc, "integrating answers")

	var (
		parts     []string
		combined  []retrieval.Chunk
		cited     []int
		usage     llm.Usage
		chunkSlot = map[string]int{}
	)

	for i, result := range rc.Results {
		answer := result.Answer
		if len(rc.Results) > 1 {
			answer = rc.Plan.SubQuestions[i].Text + "\n" + answer
		}
		parts = append(parts, answer)
		usage.Add(result.Usage)

		// Map this result's local source positions onto the combined list.
		local := make([]int, len(result.Sources))
		for j, chunk := range result.Sources {
			slot, exists := chunkSlot[chunk.ID]
			if !exists {
				slot = len(combined)
				chunkSlot[chunk.ID] = slot
				combined = append(combined, chunk)
			}
			local[j] = slot
		}
		for _, idx := range result.CitedIndices {
			if idx >= 0 && idx < len(local) {
				cited = appendUnique(cited, local[idx])
			}
		}
	}

	signal := rollUpSignal(combined)
	label := rollUpConfidence(combined, o.thresholds)

	payload := &dto.ResponsePayload{
		CorrelationId:      msg.CorrelationId,
		ThreadId:           msg.ThreadId,
		Status:             dto.StatusCompleted,
		Message:            strings.Join(parts, "\n\n"),
		Sources:            dto.SourcesFromChunks(combined),
		CitedSourceIndices: cited,
		RetrievalSignal:    string(signal),
		ConfidenceLabel:    string(label),
		PromptTokens:       usage.PromptTokens,
		CompletionTokens:   usage.CompletionTokens,
		Cost:               usage.Cost,
		CompletedAt:        time.Now(),
	}

	// The question is answered: nothing is pending on this thread anymore.
	cleared := []string{}
	dialogue.ApplyDelta(rc.State, dialogue.StateDelta{OpenSlots: &cleared})
	o.states.Save(rc.ThreadID.String(), rc.State)

	return payload
}

// rollUpSignal reports the overall source mix of the combined list.
func rollUpSignal(chunks []retrieval.Chunk) retrieval.Signal {
	hasCorpus, hasWeb := false, false
	for _, c := range chunks {
		if c.SourceType == "google" {
			hasWeb = true
		} else {
			hasCorpus = true
		}
	}
	switch {
	case hasCorpus && hasWeb:
		return retrieval.SignalCorpusPlusGoogle
	case hasCorpus:
		return retrieval.SignalCorpusOnly
	case hasWeb:
		return retrieval.SignalGoogleOnly
	default:
		return retrieval.SignalNoSources
	}
}

// rollUpConfidence derives the overall badge from the best corpus score.
// Web-only answers are capped at process_with_caution; no sources at all is
// an abstain.
func rollUpConfidence(chunks []retrieval.Chunk, thresholds retrieval.Thresholds) retrieval.ConfidenceLabel {
	best := -1.0
	hasWeb := false
	for _, c := range chunks {
		if c.SourceType == "google" {
			hasWeb = true
			continue
		}
		if c.Score > best {
			best = c.Score
		}
	}
	if best >= 0 {
		return retrieval.AssignConfidence(best, thresholds)
	}
	if hasWeb {
		return retrieval.LabelProcessWithCaution
	}
	return retrieval.LabelAbstain
}

func appendUnique(indices []int, idx int) []int {
	for _, existing := range indices {
		if existing == idx {
			return indices
		}
	}
	return append(indices, idx)
}
