package models

// Archetype is the psychological lens through which the player reads the
// world. It changes composed narrative text and skill affinities without
// changing underlying facts. The set is closed: new archetypes are a
// content-design decision, not a runtime plugin concern.
type Archetype string

const (
	ArchetypeBeliever Archetype = "believer"
	ArchetypeSkeptic  Archetype = "skeptic"
	ArchetypeHaunted  Archetype = "haunted"
	ArchetypeNeutral  Archetype = "neutral"
)

// Valid reports whether a is one of the known archetypes.
func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeBeliever, ArchetypeSkeptic, ArchetypeHaunted, ArchetypeNeutral:
		return true
	}
	return false
}

// SanityTier buckets the sanity meter into the bands that drive text
// distortion.
type SanityTier int

const (
	TierLucid     SanityTier = iota // 75-100
	TierUnsettled                   // 50-74
	TierHysteria                    // 25-49
	TierPsychosis                   // 1-24
)

// TimeBlock names a stretch of the in-game day.
type TimeBlock string

const (
	BlockNight     TimeBlock = "night"
	BlockDawn      TimeBlock = "dawn"
	BlockMorning   TimeBlock = "morning"
	BlockAfternoon TimeBlock = "afternoon"
	BlockTwilight  TimeBlock = "twilight"
)

const (
	minutesPerDay = 24 * 60

	// archetypeLead is how far ahead of the runner-up a lens exposure score
	// must be before the archetype shifts away from neutral.
	archetypeLead = 3
)

// PlayerState is the full mutable state of one player. It is owned by a
// single session; the engine never shares it between sessions.
type PlayerState struct {
	Skills        map[string]int    `json:"skills"`
	Sanity        int               `json:"sanity"`
	Reality       int               `json:"reality"`
	Archetype     Archetype         `json:"archetype"`
	Flags         map[string]bool   `json:"flags"`
	Inventory     []string          `json:"inventory"`
	Trust         map[string]int    `json:"trust"`
	Attention     int               `json:"attention"`
	Day           int               `json:"day"`
	Minutes       int               `json:"minutes"`
	CurrentScene  string            `json:"current_scene"`
	VisitedScenes map[string]bool   `json:"visited_scenes"`
	Clues         map[string]bool   `json:"clues"`
	LensExposure  map[Archetype]int `json:"lens_exposure"`
	ThermalMode   bool              `json:"thermal_mode"`
}

// NewPlayerState returns a fresh player at full sanity and reality.
func NewPlayerState() *PlayerState {
	return &PlayerState{
		Skills:        map[string]int{},
		Sanity:        100,
		Reality:       100,
		Archetype:     ArchetypeNeutral,
		Flags:         map[string]bool{},
		Inventory:     nil,
		Trust:         map[string]int{},
		Attention:     0,
		Day:           1,
		Minutes:       8 * 60,
		CurrentScene:  "",
		VisitedScenes: map[string]bool{},
		Clues:         map[string]bool{},
		LensExposure:  map[Archetype]int{},
		ThermalMode:   false,
	}
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// ModifySanity adjusts sanity by delta, clamped to [0,100].
func (p *PlayerState) ModifySanity(delta int) {
	p.Sanity = clamp(p.Sanity+delta, 0, 100)
}

// ModifyReality adjusts reality by delta, clamped to [0,100].
func (p *PlayerState) ModifyReality(delta int) {
	p.Reality = clamp(p.Reality+delta, 0, 100)
}

// ModifyAttention adjusts the attention meter by delta, clamped to [0,100].
func (p *PlayerState) ModifyAttention(delta int) {
	p.Attention = clamp(p.Attention+delta, 0, 100)
}

// ModifyTrust adjusts trust towards an NPC by delta, clamped to [-100,100].
func (p *PlayerState) ModifyTrust(npcID string, delta int) {
	p.Trust[npcID] = clamp(p.Trust[npcID]+delta, -100, 100)
}

// AdvanceTime moves the clock forward, rolling over into new days.
func (p *PlayerState) AdvanceTime(deltaMinutes int) {
	p.Minutes += deltaMinutes
	if p.Minutes >= minutesPerDay {
		p.Day += p.Minutes / minutesPerDay
		p.Minutes %= minutesPerDay
	}
}

// Block returns the named stretch of day for the current clock.
func (p *PlayerState) Block() TimeBlock {
	m := p.Minutes
	switch {
	case m < 6*60:
		return BlockNight
	case m < 8*60:
		return BlockDawn
	case m < 12*60:
		return BlockMorning
	case m < 18*60:
		return BlockAfternoon
	case m < 21*60:
		return BlockTwilight
	default:
		return BlockNight
	}
}

// Tier buckets the current sanity into a distortion band.
func (p *PlayerState) Tier() SanityTier {
	switch {
	case p.Sanity >= 75:
		return TierLucid
	case p.Sanity >= 50:
		return TierUnsettled
	case p.Sanity >= 25:
		return TierHysteria
	default:
		return TierPsychosis
	}
}

// HasItem reports whether itemID is in the inventory.
func (p *PlayerState) HasItem(itemID string) bool {
	for _, item := range p.Inventory {
		if item == itemID {
			return true
		}
	}
	return false
}

// AddItem appends itemID to the inventory if not already present.
func (p *PlayerState) AddItem(itemID string) {
	if !p.HasItem(itemID) {
		p.Inventory = append(p.Inventory, itemID)
	}
}

// RemoveItem deletes itemID from the inventory if present.
func (p *PlayerState) RemoveItem(itemID string) {
	for i, item := range p.Inventory {
		if item == itemID {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return
		}
	}
}

// RecordLensExposure tallies time spent under a non-neutral lens and
// re-derives the archetype. The archetype only shifts once one lens holds a
// clear lead over the others; otherwise it stays neutral.
func (p *PlayerState) RecordLensExposure(lens Archetype) {
	if lens == ArchetypeNeutral || !lens.Valid() {
		return
	}
	p.LensExposure[lens]++
	p.Archetype = p.deriveArchetype()
}

// SetArchetype commits to an archetype explicitly, e.g. through a defining
// story choice. Invalid values are ignored.
func (p *PlayerState) SetArchetype(a Archetype) {
	if a.Valid() {
		p.Archetype = a
	}
}

func (p *PlayerState) deriveArchetype() Archetype {
	dominant := ArchetypeNeutral
	best, secondBest := 0, 0
	for _, lens := range []Archetype{ArchetypeBeliever, ArchetypeSkeptic, ArchetypeHaunted} {
		score := p.LensExposure[lens]
		if score > best {
			secondBest = best
			best = score
			dominant = lens
		} else if score > secondBest {
			secondBest = score
		}
	}
	if best >= secondBest+archetypeLead {
		return dominant
	}
	return ArchetypeNeutral
}

// Clone returns a deep copy. The scene engine stages choice effects on a
// clone so that a failed precondition mid-application leaves the original
// untouched.
func (p *PlayerState) Clone() *PlayerState {
	cloned := *p
	cloned.Skills = cloneMap(p.Skills)
	cloned.Flags = cloneMap(p.Flags)
	cloned.Trust = cloneMap(p.Trust)
	cloned.VisitedScenes = cloneMap(p.VisitedScenes)
	cloned.Clues = cloneMap(p.Clues)
	cloned.LensExposure = cloneMap(p.LensExposure)
	cloned.Inventory = append([]string(nil), p.Inventory...)
	return &cloned
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	cloned := make(map[K]V, len(m))
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}
