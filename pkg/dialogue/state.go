package dialogue

import "strings"

// Jurisdiction is the combination of payer, state and program that scopes
// which policy documents are relevant to a thread.
type Jurisdiction struct {
	Payer   string `json:"payer"`
	State   string `json:"state"`
	Program string `json:"program"`
}

// ActiveContext holds the slots currently known for a thread.
type ActiveContext struct {
	Payer        string        `json:"payer"`
	Payers       []string      `json:"payers"`
	Domain       string        `json:"domain"`
	State        string        `json:"state"`
	Program      string        `json:"program"`
	UserRole     string        `json:"user_role"`
	Jurisdiction *Jurisdiction `json:"jurisdiction,omitempty"`
}

// SafetyContext carries per-thread safety decisions.
type SafetyContext struct {
	PatientAllowed bool `json:"patient_allowed"`
}

// ThreadState is the dialogue state persisted per thread id.
// It is mutated exclusively through ApplyDelta.
type ThreadState struct {
	Active         ActiveContext `json:"active"`
	OpenSlots      []string      `json:"open_slots"`
	RecentEntities []string      `json:"recent_entities"`
	LastUserIntent string        `json:"last_user_intent"`
	RefinedQuery   string        `json:"refined_query"`
	Safety         SafetyContext `json:"safety"`
}

// NewThreadState returns the zero state for a fresh thread.
func NewThreadState() *ThreadState {
	return &ThreadState{}
}

// ActiveDelta is a partial update of ActiveContext. Nil fields are untouched.
// There are deliberately no patient-identifying fields here: the type itself
// is the enforcement point for the safety invariant.
type ActiveDelta struct {
	Payer    *string
	Payers   *[]string
	Domain   *string
	State    *string
	Program  *string
	UserRole *string
}

// StateDelta is the only mutation vehicle for ThreadState.
// Active is shallow-merged field by field; slice fields are replaced whole;
// scalar fields replace directly.
type StateDelta struct {
	Active         *ActiveDelta
	OpenSlots      *[]string
	RecentEntities *[]string
	LastUserIntent *string
	RefinedQuery   *string
}

// ApplyDelta mutates state according to delta. This is the sole mutation path.
func ApplyDelta(state *ThreadState, delta StateDelta) {
	if delta.Active != nil {
		a := delta.Active
		if a.Payer != nil {
			state.Active.Payer = *a.Payer
		}
		if a.Payers != nil {
			state.Active.Payers = append([]string(nil), (*a.Payers)...)
		}
		if a.Domain != nil {
			state.Active.Domain = *a.Domain
		}
		if a.State != nil {
			state.Active.State = *a.State
		}
		if a.Program != nil {
			state.Active.Program = *a.Program
		}
		if a.UserRole != nil {
			state.Active.UserRole = *a.UserRole
		}
		state.Active.Jurisdiction = &Jurisdiction{
			Payer:   state.Active.Payer,
			State:   state.Active.State,
			Program: state.Active.Program,
		}
	}
	if delta.OpenSlots != nil {
		state.OpenSlots = append([]string(nil), (*delta.OpenSlots)...)
	}
	if delta.RecentEntities != nil {
		state.RecentEntities = append([]string(nil), (*delta.RecentEntities)...)
	}
	if delta.LastUserIntent != nil {
		state.LastUserIntent = *delta.LastUserIntent
	}
	if delta.RefinedQuery != nil {
		state.RefinedQuery = *delta.RefinedQuery
	}
}

// HasJurisdiction reports whether any jurisdiction slot is known.
func (s *ThreadState) HasJurisdiction() bool {
	return s.Active.Payer != "" || s.Active.State != "" || s.Active.Program != ""
}

// JurisdictionSummary renders the known jurisdiction as a short phrase,
// e.g. "Acme Health, Minnesota Medicaid". Empty when nothing is known.
func (s *ThreadState) JurisdictionSummary() string {
	var parts []string
	if s.Active.Payer != "" {
		parts = append(parts, s.Active.Payer)
	}
	region := strings.TrimSpace(strings.Join(nonEmpty(s.Active.State, s.Active.Program), " "))
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

// BuildRefinedQuery appends the jurisdiction summary to the base query unless
// the summary already appears in it or the base is empty.
func BuildRefinedQuery(base string, summary string) string {
	if base == "" || summary == "" {
		return base
	}
	if strings.Contains(strings.ToLower(base), strings.ToLower(summary)) {
		return base
	}
	return base + " for " + summary
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
