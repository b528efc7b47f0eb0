package models

// TheoryStatus is the lifecycle state of a theory on the board.
//
// locked → available → active ⇄ locked (via conflict); active → internalized
// is terminal except for contradiction-driven unlearning, which is the only
// path back to a non-terminal state. A collapsed theory is closed.
type TheoryStatus string

const (
	TheoryLocked       TheoryStatus = "locked"
	TheoryAvailable    TheoryStatus = "available"
	TheoryActive       TheoryStatus = "active"
	TheoryInternalized TheoryStatus = "internalized"
	TheoryClosed       TheoryStatus = "closed"
)

// TheoryRequirements gate the locked → available transition. Every listed
// clue, flag, scene and active theory must be present in the player's
// corresponding set, and every minimum skill must be met.
type TheoryRequirements struct {
	CluesRequired  []string       `json:"clues_required,omitempty"`
	FlagsRequired  []string       `json:"flags_required,omitempty"`
	ScenesVisited  []string       `json:"scenes_visited,omitempty"`
	TheoriesActive []string       `json:"theories_active,omitempty"`
	MinSkill       map[string]int `json:"min_skill,omitempty"`
}

// Theory is a player-held interpretive belief with requirements, effects and
// conflict relationships.
type Theory struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Requirements TheoryRequirements `json:"requirements"`
	// Effects are additive skill deltas applied on internalization and
	// reverted exactly on deactivation.
	Effects       map[string]int `json:"effects,omitempty"`
	ConflictsWith []string       `json:"conflicts_with,omitempty"`
	// OnInternalize runs as an ordered list of typed operations applied
	// atomically to the player when the theory becomes active.
	OnInternalize []Effect     `json:"on_internalize_effects,omitempty"`
	Status        TheoryStatus `json:"status"`
	LensBias      Archetype    `json:"lens_bias,omitempty"`

	EvidenceCount      int     `json:"evidence_count"`
	ContradictionCount int     `json:"contradiction_count"`
	DegradationRate    float64 `json:"degradation_rate"`
	// LastReinforced is the game-clock minute of the latest supporting
	// evidence, used to decay health over elapsed time.
	LastReinforced int `json:"last_reinforced"`
}

// TheoryRelation is how a piece of evidence bears on a theory.
type TheoryRelation string

const (
	RelSupports    TheoryRelation = "supports"
	RelContradicts TheoryRelation = "contradicts"
)

// TheoryLink points evidence at a theory.
type TheoryLink struct {
	TheoryID string         `json:"theory_id"`
	Relation TheoryRelation `json:"relation"`
}

// EvidenceText carries the base description plus optional lens variants.
type EvidenceText struct {
	Base string               `json:"base"`
	Lens map[Archetype]string `json:"lens,omitempty"`
}

// Evidence is an immutable collected fact. Collection triggers board updates
// to every linked theory.
type Evidence struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	CaseID        string       `json:"case_id"`
	Text          EvidenceText `json:"text"`
	Reliability   float64      `json:"reliability"`
	RelatedSkills []string     `json:"related_skills,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	Links         []TheoryLink `json:"links_to_theories,omitempty"`
}
