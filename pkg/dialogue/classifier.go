package dialogue

import (
	"regexp"
	"strings"
)

// TurnClass is the outcome of turn classification.
type TurnClass int

const (
	// TurnNewQuestion starts a fresh question.
	TurnNewQuestion TurnClass = iota
	// TurnSlotFill answers an outstanding clarification slot.
	TurnSlotFill
)

func (t TurnClass) String() string {
	if t == TurnSlotFill {
		return "slot_fill"
	}
	return "new_question"
}

const (
	slotFillMaxTokens    = 5
	affirmationMaxTokens = 4
	newTopicMinTokens    = 4
)

var (
	interrogativeWords = map[string]bool{
		"what": true, "how": true, "why": true, "when": true, "where": true,
		"who": true, "which": true, "can": true, "could": true, "does": true,
		"do": true, "is": true, "are": true, "should": true, "will": true,
	}

	affirmations = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "correct": true, "right": true,
		"same": true, "that one": true, "the same": true, "same one": true,
	}

	newTopicPattern = regexp.MustCompile(`(?i)\b(new question|different question|another question|unrelated|change of topic|switch(ing)? topics?)\b`)

	payerShapePattern = regexp.MustCompile(`(?i)\b([a-z]+\s+)*(health(care)?|insurance|plan|bcbs|blue\s?cross|aetna|cigna|humana|united(healthcare)?|kaiser|anthem|molina|centene)\b`)

	rolePattern = regexp.MustCompile(`(?i)\b(provider|member|biller|billing|case manager|care coordinator)\b`)
)

// Classify decides whether a message fills an outstanding slot of the prior
// turn or starts a new question.
//
// Slot fill when:
//   - open slots exist and the message is short and shaped like a
//     payer/state/role value, or is a short affirmation; or
//   - no open slots but a prior refined query exists and the message is
//     short and not question-shaped (treated as a refinement fragment).
//
// A message matching interrogative/new-topic patterns at >=4 tokens is
// always a new question regardless of the above.
func Classify(message string, openSlots []string, lastRefinedQuery string) TurnClass {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return TurnNewQuestion
	}
	tokens := strings.Fields(trimmed)
	n := len(tokens)

	if n >= newTopicMinTokens && (isQuestionShaped(trimmed) || newTopicPattern.MatchString(trimmed)) {
		return TurnNewQuestion
	}

	if len(openSlots) > 0 {
		if n <= slotFillMaxTokens && looksLikeSlotValue(trimmed) {
			return TurnSlotFill
		}
		if n <= affirmationMaxTokens && isAffirmation(trimmed) {
			return TurnSlotFill
		}
	}

	if len(openSlots) == 0 && lastRefinedQuery != "" &&
		n <= slotFillMaxTokens && !isQuestionShaped(trimmed) {
		return TurnSlotFill
	}

	return TurnNewQuestion
}

func isQuestionShaped(message string) bool {
	if strings.Contains(message, "?") {
		return true
	}
	fields := strings.Fields(strings.ToLower(message))
	if len(fields) == 0 {
		return false
	}
	return interrogativeWords[strings.Trim(fields[0], ".,!")]
}

func isAffirmation(message string) bool {
	normalized := strings.ToLower(strings.Trim(message, " .,!"))
	if affirmations[normalized] {
		return true
	}
	for phrase := range affirmations {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

func looksLikeSlotValue(message string) bool {
	if payerShapePattern.MatchString(message) {
		return true
	}
	if rolePattern.MatchString(message) {
		return true
	}
	if _, ok := matchUSState(message); ok {
		return true
	}
	return false
}
