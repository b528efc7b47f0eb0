package models

// ConditionKind discriminates the condition variants a scene author can use
// to gate inserts, choices and scene entry.
type ConditionKind string

const (
	CondSkillGTE     ConditionKind = "skill_gte"
	CondFlagSet      ConditionKind = "flag_set"
	CondTheoryActive ConditionKind = "theory_active"
	CondTrustGTE     ConditionKind = "trust_gte"
	CondThermalMode  ConditionKind = "thermal_mode"
	CondSanityLT     ConditionKind = "sanity_lt"
	CondSceneVisited ConditionKind = "scene_visited"
	CondHasItem      ConditionKind = "has_item"
)

// Condition is a single authored predicate over player state. Which fields
// are meaningful depends on Kind.
type Condition struct {
	Kind    ConditionKind `json:"kind"`
	Skill   string        `json:"skill,omitempty"`
	Name    string        `json:"name,omitempty"`
	Theory  string        `json:"theory,omitempty"`
	NPC     string        `json:"npc,omitempty"`
	Scene   string        `json:"scene,omitempty"`
	Item    string        `json:"item,omitempty"`
	Value   int           `json:"value,omitempty"`
	Enabled bool          `json:"enabled,omitempty"`
}

// InsertPosition says where a conditional insert splices into composed text.
type InsertPosition string

const (
	AfterBase     InsertPosition = "AFTER_BASE"
	AfterLens     InsertPosition = "AFTER_LENS"
	BeforeChoices InsertPosition = "BEFORE_CHOICES"
	MidParagraph  InsertPosition = "MID_PARAGRAPH"
	// AfterParagraph is used together with Insert.Paragraph. Authored in
	// JSON as "AFTER_PARAGRAPH:n".
	AfterParagraph InsertPosition = "AFTER_PARAGRAPH"
)

// Insert is a conditional text fragment evaluated fresh on every scene
// render and never persisted.
type Insert struct {
	ID        string         `json:"id"`
	Condition Condition      `json:"condition"`
	Text      string         `json:"text"`
	InsertAt  InsertPosition `json:"insert_at"`
	// Paragraph is the 0-indexed paragraph for AfterParagraph splices.
	// Out-of-range values make the insert a no-op, not an error, to keep
	// content authoring forgiving.
	Paragraph int `json:"paragraph,omitempty"`
}

// SceneText is the layered narrative content of a scene.
type SceneText struct {
	Base    string               `json:"base"`
	Thermal string               `json:"thermal,omitempty"`
	Lens    map[Archetype]string `json:"lens,omitempty"`
	Inserts []Insert             `json:"inserts,omitempty"`
}

// CostKind names the price of a partial success. The scene author picks
// which cost a choice's check incurs.
type CostKind string

const (
	CostTime      CostKind = "time"
	CostTrust     CostKind = "trust"
	CostInjury    CostKind = "injury"
	CostAttention CostKind = "attention"
	CostNoise     CostKind = "noise"
	CostEvidence  CostKind = "evidence"
)

// Check is an authored 2d6 skill check attached to a choice.
type Check struct {
	Skill     string     `json:"skill"`
	Attribute string     `json:"attribute,omitempty"`
	DC        int        `json:"dc"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
	// PartialCost is the price of succeeding by a narrow margin.
	PartialCost CostKind `json:"partial_cost,omitempty"`
	// FailScene, when set, overrides the choice's next scene on Failure and
	// CriticalFailure.
	FailScene string `json:"fail_scene,omitempty"`
}

// Modifier is a named situational adjustment to a check total.
type Modifier struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// EffectOp discriminates the typed operations a choice or theory can apply
// to player state.
type EffectOp string

const (
	OpSetFlag         EffectOp = "set_flag"
	OpModifySanity    EffectOp = "modify_sanity"
	OpModifyReality   EffectOp = "modify_reality"
	OpModifyTrust     EffectOp = "modify_trust"
	OpModifyAttention EffectOp = "modify_attention"
	OpAdvanceTime     EffectOp = "advance_time"
	OpAddItem         EffectOp = "add_item"
	OpRemoveItem      EffectOp = "remove_item"
	OpAddClue         EffectOp = "add_clue"
	OpSetSkill        EffectOp = "set_skill"
	// OpCollectEvidence pulls an evidence definition from the catalog onto
	// the board. Only choices may collect evidence; the scene engine handles
	// the op itself.
	OpCollectEvidence EffectOp = "add_evidence"
	// OpInternalizeTheory commits an available theory onto the board,
	// applying its skill deltas and displacing conflicting theories. Only
	// choices may internalize; the scene engine handles the op itself.
	OpInternalizeTheory EffectOp = "internalize_theory"
)

// Effect is one typed state mutation. Effects apply in authored order and
// atomically as a list: either all of a choice's effects apply or none do.
type Effect struct {
	Op    EffectOp `json:"op"`
	Name  string   `json:"name,omitempty"`
	NPC   string   `json:"npc,omitempty"`
	Value int      `json:"value,omitempty"`
}

// Choice is one exit from a scene.
type Choice struct {
	Label     string      `json:"label"`
	NextScene string      `json:"next_scene"`
	Prereqs   []Condition `json:"prereqs,omitempty"`
	Check     *Check      `json:"check,omitempty"`
	Effects   []Effect    `json:"effects,omitempty"`
}

// Scene is one authored location-moment with layered text and choices.
// Every scene must have at least one reachable choice; the content loader
// rejects dead ends.
type Scene struct {
	ID       string      `json:"id"`
	Location string      `json:"location"`
	TimeCost int         `json:"time_cost"`
	Prereqs  []Condition `json:"prereqs,omitempty"`
	Text     SceneText   `json:"text"`
	Choices  []Choice    `json:"choices"`
	// Ending marks a terminal scene. Terminal scenes are exempt from the
	// no-dead-end rule.
	Ending bool `json:"ending,omitempty"`
	// Distortion picks the psychosis-tier transform for this scene:
	// "corrupt", "reverse" or "redact". Empty means the engine default.
	Distortion string `json:"distortion,omitempty"`
}
