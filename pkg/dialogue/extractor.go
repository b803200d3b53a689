package dialogue

import (
	"regexp"
	"strings"
)

// Extractor derives a StateDelta from a user message. It recognizes payers,
// US states, programs and user roles. It never emits patient-identifying
// values: candidates matching name/DOB/identifier patterns are dropped by a
// hard filter, and ActiveDelta has no fields that could carry them.
type Extractor struct {
	knownPayers []string
}

// NewExtractor builds an extractor. knownPayers augments the built-in payer
// shape pattern with deployment-specific payer names.
func NewExtractor(knownPayers []string) *Extractor {
	return &Extractor{knownPayers: knownPayers}
}

var (
	payerNamePattern = regexp.MustCompile(`\b((?:[A-Z][A-Za-z]+\s+)*(?:Health(?:care)?|Insurance|Plan|Care))\b`)

	programPattern = regexp.MustCompile(`(?i)\b(medicaid|medicare|chip|marketplace|commercial|dual[- ]eligible|duals)\b`)

	// Patterns that mark a value as patient-identifying. Anything matching
	// these must never enter a state delta.
	dobPattern        = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	identifierPattern = regexp.MustCompile(`(?i)\b(mrn|medical record(?: number)?|member\s*(?:id|number)|dob|date of birth|ssn|social security)\b`)
	longDigitPattern  = regexp.MustCompile(`\b\d{6,}\b`)
	namePhrasePattern = regexp.MustCompile(`(?i)\b(my name is|patient name|i am called)\b`)
)

// Extract produces the delta for one message against the current state.
// Payer-switch rule: when the extracted payer differs from the stored payer,
// the delta also clears domain and open slots, since process relevance no
// longer holds once jurisdiction changes.
func (e *Extractor) Extract(message string, current *ThreadState) StateDelta {
	var delta StateDelta
	active := &ActiveDelta{}
	touched := false

	safe := scrubPatientIdentifiers(message)

	if payer := e.detectPayer(safe); payer != "" {
		active.Payer = &payer
		touched = true
		if current != nil && current.Active.Payer != "" && !strings.EqualFold(current.Active.Payer, payer) {
			empty := ""
			active.Domain = &empty
			cleared := []string{}
			delta.OpenSlots = &cleared
		}
	}
	if state, ok := matchUSState(safe); ok {
		active.State = &state
		touched = true
	}
	if m := programPattern.FindString(safe); m != "" {
		program := strings.ToLower(m)
		active.Program = &program
		touched = true
	}
	if m := rolePattern.FindString(safe); m != "" {
		role := strings.ToLower(m)
		active.UserRole = &role
		touched = true
	}

	if touched {
		delta.Active = active
	}

	if entities := e.collectEntities(safe, active); len(entities) > 0 {
		delta.RecentEntities = &entities
	}

	return delta
}

func (e *Extractor) detectPayer(message string) string {
	lower := strings.ToLower(message)
	for _, p := range e.knownPayers {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	if m := payerNamePattern.FindString(message); m != "" {
		// A bare "Health" or "Insurance" on its own is not a payer name.
		if len(strings.Fields(m)) >= 2 {
			return m
		}
	}
	return ""
}

func (e *Extractor) collectEntities(message string, active *ActiveDelta) []string {
	var entities []string
	if active.Payer != nil && *active.Payer != "" {
		entities = append(entities, *active.Payer)
	}
	if active.State != nil && *active.State != "" {
		entities = append(entities, *active.State)
	}
	if active.Program != nil && *active.Program != "" {
		entities = append(entities, *active.Program)
	}
	filtered := entities[:0]
	for _, ent := range entities {
		if !ContainsPatientIdentifier(ent) {
			filtered = append(filtered, ent)
		}
	}
	return filtered
}

// ContainsPatientIdentifier reports whether text carries a name, date of
// birth, or record/member identifier pattern.
func ContainsPatientIdentifier(text string) bool {
	return dobPattern.MatchString(text) ||
		identifierPattern.MatchString(text) ||
		longDigitPattern.MatchString(text) ||
		namePhrasePattern.MatchString(text)
}

// scrubPatientIdentifiers removes identifier-bearing spans before any slot
// extraction runs, so no downstream matcher can see them.
func scrubPatientIdentifiers(message string) string {
	out := dobPattern.ReplaceAllString(message, " ")
	out = longDigitPattern.ReplaceAllString(out, " ")
	if identifierPattern.MatchString(out) || namePhrasePattern.MatchString(out) {
		// Drop the clauses that introduce identifiers entirely.
		var kept []string
		for _, clause := range strings.FieldsFunc(out, func(r rune) bool { return r == ',' || r == ';' || r == '.' }) {
			if identifierPattern.MatchString(clause) || namePhrasePattern.MatchString(clause) {
				continue
			}
			kept = append(kept, strings.TrimSpace(clause))
		}
		out = strings.Join(kept, ". ")
	}
	return out
}

var usStates = map[string]string{
	"alabama": "Alabama", "alaska": "Alaska", "arizona": "Arizona",
	"arkansas": "Arkansas", "california": "California", "colorado": "Colorado",
	"connecticut": "Connecticut", "delaware": "Delaware", "florida": "Florida",
	"georgia": "Georgia", "hawaii": "Hawaii", "idaho": "Idaho",
	"illinois": "Illinois", "indiana": "Indiana", "iowa": "Iowa",
	"kansas": "Kansas", "kentucky": "Kentucky", "louisiana": "Louisiana",
	"maine": "Maine", "maryland": "Maryland", "massachusetts": "Massachusetts",
	"michigan": "Michigan", "minnesota": "Minnesota", "mississippi": "Mississippi",
	"missouri": "Missouri", "montana": "Montana", "nebraska": "Nebraska",
	"nevada": "Nevada", "new hampshire": "New Hampshire", "new jersey": "New Jersey",
	"new mexico": "New Mexico", "new york": "New York", "north carolina": "North Carolina",
	"north dakota": "North Dakota", "ohio": "Ohio", "oklahoma": "Oklahoma",
	"oregon": "Oregon", "pennsylvania": "Pennsylvania", "rhode island": "Rhode Island",
	"south carolina": "South Carolina", "south dakota": "South Dakota",
	"tennessee": "Tennessee", "texas": "Texas", "utah": "Utah", "vermont": "Vermont",
	"virginia": "Virginia", "washington": "Washington", "west virginia": "West Virginia",
	"wisconsin": "Wisconsin", "wyoming": "Wyoming",
}

func matchUSState(message string) (string, bool) {
	lower := strings.ToLower(message)
	for key, canonical := range usStates {
		if containsWord(lower, key) {
			return canonical, true
		}
	}
	return "", false
}

func containsWord(haystack, needle string) bool {
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !isLetter(haystack[idx-1])
	afterIdx := idx + len(needle)
	after := afterIdx >= len(haystack) || !isLetter(haystack[afterIdx])
	return before && after
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
