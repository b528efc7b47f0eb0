// Package board implements the player's investigation board: the evidence
// and theory graph with conflict and linkage rules.
//
// The board owns every theory and evidence record; everything else refers to
// them by id. Relations live as separate edge records so the graph has no
// cyclic owning pointers.
package board

import (
	"log/slog"
	"sort"

	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

const defaultSlots = 3

// Health tuning. Health starts at the midpoint, moves by a fixed weight per
// linked evidence, and decays by the theory's degradation rate per in-game
// hour since the last reinforcement.
const (
	healthBase          = 50.0
	evidenceWeight      = 10.0
	contradictionWeight = 10.0
	// StrainedBelow marks the health threshold under which the UI shows a
	// theory as strained.
	StrainedBelow = 50.0
)

// Edge records one evidence-to-theory relation.
type Edge struct {
	EvidenceID string                `json:"evidence_id"`
	TheoryID   string                `json:"theory_id"`
	Relation   models.TheoryRelation `json:"relation"`
}

// Board is the single owner of the player's theories and evidence. It is
// owned by one session; there is no concurrent access within a session.
type Board struct {
	theories map[string]*models.Theory
	evidence map[string]*models.Evidence
	edges    []Edge
	// applied records, per active theory, the exact skill deltas applied at
	// activation so deactivation reverses them without residue.
	applied map[string]map[string]int
	slots   int
	logger  *slog.Logger
}

// New creates an empty board.
func New(logger *slog.Logger) *Board {
	return &Board{
		theories: map[string]*models.Theory{},
		evidence: map[string]*models.Evidence{},
		edges:    nil,
		applied:  map[string]map[string]int{},
		slots:    defaultSlots,
		logger:   logger.With("source", "board"),
	}
}

// AddTheory registers a theory definition. Duplicate ids are a content
// defect.
func (b *Board) AddTheory(theory models.Theory) error {
	if theory.ID == "" {
		return errors.Wrap(models.ErrConfig, "theory without id", slog.String("name", theory.Name))
	}
	if _, ok := b.theories[theory.ID]; ok {
		return errors.Wrap(models.ErrConfig, "duplicate theory id", slog.String("theoryID", theory.ID))
	}
	if theory.Status == "" {
		theory.Status = models.TheoryLocked
	}
	b.theories[theory.ID] = &theory
	return nil
}

// Theory looks up a theory by id.
func (b *Board) Theory(id string) (*models.Theory, error) {
	theory, ok := b.theories[id]
	if !ok {
		return nil, errors.Wrap(models.ErrNotFound, "unknown theory", slog.String("theoryID", id))
	}
	return theory, nil
}

// Evidence looks up an evidence record by id.
func (b *Board) Evidence(id string) (*models.Evidence, error) {
	ev, ok := b.evidence[id]
	if !ok {
		return nil, errors.Wrap(models.ErrNotFound, "unknown evidence", slog.String("evidenceID", id))
	}
	return ev, nil
}

// Theories returns all theories sorted by id.
func (b *Board) Theories() []*models.Theory {
	out := make([]*models.Theory, 0, len(b.theories))
	for _, theory := range b.theories {
		out = append(out, theory)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveTheories returns the ids of active and internalized theories, the
// set consulted by theory_active conditions and theory requirements.
func (b *Board) ActiveTheories() map[string]bool {
	active := map[string]bool{}
	for id, theory := range b.theories {
		if theory.Status == models.TheoryActive || theory.Status == models.TheoryInternalized {
			active[id] = true
		}
	}
	return active
}

// AddEvidence stores a piece of evidence and updates every linked theory's
// counts. Evidence existence does not require the theory to exist yet:
// unknown links are skipped and logged so content can be authored out of
// order. Re-adding known evidence is a no-op; evidence is immutable once
// created.
//
// now is the game clock in minutes, used to timestamp reinforcement.
func (b *Board) AddEvidence(ev models.Evidence, now int) error {
	if ev.ID == "" {
		return errors.Wrap(models.ErrConfig, "evidence without id", slog.String("name", ev.Name))
	}
	if _, ok := b.evidence[ev.ID]; ok {
		b.logger.Debug("evidence already collected", "evidenceID", ev.ID)
		return nil
	}
	b.evidence[ev.ID] = &ev

	for _, link := range ev.Links {
		if _, ok := b.theories[link.TheoryID]; !ok {
			b.logger.Warn("evidence links to unknown theory, link skipped",
				"evidenceID", ev.ID, "theoryID", link.TheoryID)
			continue
		}
		b.link(ev.ID, link.TheoryID, link.Relation, now)
	}
	return nil
}

// LinkEvidence attaches already-collected evidence to a theory. Unlike the
// implicit links on AddEvidence, an unknown id here is the caller's mistake.
func (b *Board) LinkEvidence(evidenceID, theoryID string, relation models.TheoryRelation, now int) error {
	if _, err := b.Evidence(evidenceID); err != nil {
		return err
	}
	if _, err := b.Theory(theoryID); err != nil {
		return err
	}
	for _, edge := range b.edges {
		if edge.EvidenceID == evidenceID && edge.TheoryID == theoryID {
			return nil
		}
	}
	b.link(evidenceID, theoryID, relation, now)
	return nil
}

func (b *Board) link(evidenceID, theoryID string, relation models.TheoryRelation, now int) {
	theory := b.theories[theoryID]
	switch relation {
	case models.RelContradicts:
		theory.ContradictionCount++
	default:
		theory.EvidenceCount++
		theory.LastReinforced = now
	}
	b.edges = append(b.edges, Edge{EvidenceID: evidenceID, TheoryID: theoryID, Relation: relation})
}

// Available reports whether the player meets every requirement of the
// theory. Pure: re-evaluated on every relevant state change, never cached.
func Available(theory *models.Theory, player *models.PlayerState, active map[string]bool) bool {
	req := theory.Requirements
	for _, clue := range req.CluesRequired {
		if !player.Clues[clue] {
			return false
		}
	}
	for _, flag := range req.FlagsRequired {
		if !player.Flags[flag] {
			return false
		}
	}
	for _, scene := range req.ScenesVisited {
		if !player.VisitedScenes[scene] {
			return false
		}
	}
	for _, id := range req.TheoriesActive {
		if !active[id] {
			return false
		}
	}
	for skill, minimum := range req.MinSkill {
		if player.Skills[skill] < minimum {
			return false
		}
	}
	return true
}

// UnlockAvailable transitions every locked theory whose requirements the
// player now meets to available, returning the ids that changed.
func (b *Board) UnlockAvailable(player *models.PlayerState) []string {
	active := b.ActiveTheories()
	var unlocked []string
	for _, theory := range b.Theories() {
		if theory.Status != models.TheoryLocked {
			continue
		}
		if Available(theory, player, active) {
			theory.Status = models.TheoryAvailable
			unlocked = append(unlocked, theory.ID)
		}
	}
	return unlocked
}

// Internalize activates an available theory: applies its skill deltas to the
// player, forces any conflicting active theory back to locked with its
// deltas reverted exactly, and runs the theory's on-internalize operations
// as an ordered, atomic list.
func (b *Board) Internalize(theoryID string, player *models.PlayerState, now int) error {
	theory, err := b.Theory(theoryID)
	if err != nil {
		return err
	}
	if theory.Status != models.TheoryAvailable {
		return errors.Wrap(models.ErrInput, "theory is not available",
			slog.String("theoryID", theoryID), slog.String("status", string(theory.Status)))
	}
	if b.activeCount() >= b.slots {
		return errors.Wrap(models.ErrInput, "no free board slots", slog.Int("slots", b.slots))
	}
	// Validate the effect list before touching any state so the whole
	// operation applies atomically or not at all.
	staged := player.Clone()
	if err = applyEffects(theory.OnInternalize, staged); err != nil {
		return errors.Wrap(err, "on-internalize effects", slog.String("theoryID", theoryID))
	}

	for _, other := range b.theories {
		if other.Status != models.TheoryActive {
			continue
		}
		if conflicts(theory, other) {
			b.deactivate(other, staged)
		}
	}

	deltas := make(map[string]int, len(theory.Effects))
	for skill, delta := range theory.Effects {
		staged.Skills[skill] += delta
		deltas[skill] = delta
	}
	theory.Status = models.TheoryActive
	b.applied[theory.ID] = deltas
	*player = *staged

	if err = b.checkConflictInvariant(); err != nil {
		return err
	}
	return nil
}

// MarkInternalized commits an active theory permanently. Internalized
// theories no longer yield to conflicts; only contradiction-driven
// unlearning moves them back to a non-terminal state.
func (b *Board) MarkInternalized(theoryID string) error {
	theory, err := b.Theory(theoryID)
	if err != nil {
		return err
	}
	if theory.Status != models.TheoryActive {
		return errors.Wrap(models.ErrInput, "only active theories can be internalized",
			slog.String("theoryID", theoryID), slog.String("status", string(theory.Status)))
	}
	theory.Status = models.TheoryInternalized
	return nil
}

// Unlearn is the contradiction-driven removal of an internalized theory, the
// only path out of the terminal state. The theory's deltas are reverted and
// it returns to available.
func (b *Board) Unlearn(theoryID string, player *models.PlayerState) error {
	theory, err := b.Theory(theoryID)
	if err != nil {
		return err
	}
	if theory.Status != models.TheoryInternalized {
		return errors.Wrap(models.ErrInput, "theory is not internalized",
			slog.String("theoryID", theoryID), slog.String("status", string(theory.Status)))
	}
	b.deactivate(theory, player)
	theory.Status = models.TheoryAvailable
	return nil
}

// Lock forces a theory to locked, reverting its deltas if it was active.
func (b *Board) Lock(theoryID string, player *models.PlayerState) error {
	theory, err := b.Theory(theoryID)
	if err != nil {
		return err
	}
	if theory.Status == models.TheoryActive || theory.Status == models.TheoryInternalized {
		b.deactivate(theory, player)
	}
	theory.Status = models.TheoryLocked
	return nil
}

// SetStatus is the debug surface behind the toggletheory command. It applies
// or reverts deltas as needed to keep the no-residue invariant.
func (b *Board) SetStatus(theoryID string, status models.TheoryStatus, player *models.PlayerState, now int) error {
	theory, err := b.Theory(theoryID)
	if err != nil {
		return err
	}
	switch status {
	case models.TheoryActive:
		if theory.Status == models.TheoryActive || theory.Status == models.TheoryInternalized {
			return nil
		}
		theory.Status = models.TheoryAvailable
		return b.Internalize(theoryID, player, now)
	case models.TheoryLocked:
		return b.Lock(theoryID, player)
	case models.TheoryAvailable, models.TheoryInternalized, models.TheoryClosed:
		if theory.Status == models.TheoryActive || theory.Status == models.TheoryInternalized {
			b.deactivate(theory, player)
		}
		theory.Status = status
		return nil
	default:
		return errors.Wrap(models.ErrInput, "unknown theory status", slog.String("status", string(status)))
	}
}

// deactivate reverses exactly the deltas that activation applied. No double
// application, no residue.
func (b *Board) deactivate(theory *models.Theory, player *models.PlayerState) {
	for skill, delta := range b.applied[theory.ID] {
		player.Skills[skill] -= delta
	}
	delete(b.applied, theory.ID)
	theory.Status = models.TheoryLocked
}

func conflicts(a, other *models.Theory) bool {
	for _, id := range a.ConflictsWith {
		if id == other.ID {
			return true
		}
	}
	for _, id := range other.ConflictsWith {
		if id == a.ID {
			return true
		}
	}
	return false
}

func (b *Board) activeCount() int {
	count := 0
	for _, theory := range b.theories {
		if theory.Status == models.TheoryActive || theory.Status == models.TheoryInternalized {
			count++
		}
	}
	return count
}

// checkConflictInvariant verifies that no two mutually conflicting theories
// are active at once. A violation is an engine bug and must never be
// swallowed.
func (b *Board) checkConflictInvariant() error {
	for _, theory := range b.Theories() {
		if theory.Status != models.TheoryActive && theory.Status != models.TheoryInternalized {
			continue
		}
		for _, conflictID := range theory.ConflictsWith {
			other, ok := b.theories[conflictID]
			if !ok {
				continue
			}
			if other.Status == models.TheoryActive || other.Status == models.TheoryInternalized {
				return errors.Wrap(models.ErrConsistency, "conflicting theories both active",
					slog.String("theoryID", theory.ID), slog.String("conflictID", conflictID))
			}
		}
	}
	return nil
}

// Health derives a theory's integrity in [0,100] at the given game-clock
// minute. Supporting evidence raises it, contradictions lower it, and it
// decays by the degradation rate per hour since the last reinforcement.
// Monotonic by construction: more evidence never lowers it, more
// contradictions never raise it.
func (b *Board) Health(theoryID string, now int) (float64, error) {
	theory, err := b.Theory(theoryID)
	if err != nil {
		return 0, err
	}
	elapsed := now - theory.LastReinforced
	if elapsed < 0 {
		elapsed = 0
	}
	decay := theory.DegradationRate * float64(elapsed) / 60.0
	health := healthBase +
		evidenceWeight*float64(theory.EvidenceCount) -
		contradictionWeight*float64(theory.ContradictionCount) -
		decay
	if health < 0 {
		return 0, nil
	}
	if health > 100 {
		return 100, nil
	}
	return health, nil
}

// Strained reports whether the theory's health has fallen below the strain
// threshold.
func (b *Board) Strained(theoryID string, now int) (bool, error) {
	health, err := b.Health(theoryID, now)
	if err != nil {
		return false, err
	}
	return health < StrainedBelow, nil
}

// Collapse closes any active theory whose health has reached zero, reverting
// its deltas. It returns the collapsed ids and the total sanity damage the
// caller should apply, scaled by each theory's contradiction count.
func (b *Board) Collapse(player *models.PlayerState, now int) (collapsed []string, sanityDamage int) {
	const perContradiction = 5
	for _, theory := range b.Theories() {
		if theory.Status != models.TheoryActive {
			continue
		}
		health, err := b.Health(theory.ID, now)
		if err != nil {
			continue
		}
		if health > 0 {
			continue
		}
		b.deactivate(theory, player)
		theory.Status = models.TheoryClosed
		collapsed = append(collapsed, theory.ID)
		sanityDamage += perContradiction * theory.ContradictionCount
	}
	return collapsed, sanityDamage
}

// UnlearnBroken unlearns every internalized theory whose health has reached
// zero. Internalized theories are otherwise terminal, so this is the
// contradiction-driven path out: deltas reverted, status back to available.
// It returns the unlearned ids.
func (b *Board) UnlearnBroken(player *models.PlayerState, now int) []string {
	var unlearned []string
	for _, theory := range b.Theories() {
		if theory.Status != models.TheoryInternalized {
			continue
		}
		health, err := b.Health(theory.ID, now)
		if err != nil || health > 0 {
			continue
		}
		b.deactivate(theory, player)
		theory.Status = models.TheoryAvailable
		unlearned = append(unlearned, theory.ID)
	}
	return unlearned
}

// applyEffects runs an ordered list of typed operations against the player.
// An unknown op is a content defect; nothing is applied piecemeal because
// callers stage onto a clone first.
func applyEffects(effects []models.Effect, player *models.PlayerState) error {
	for _, effect := range effects {
		switch effect.Op {
		case models.OpSetFlag:
			player.Flags[effect.Name] = true
		case models.OpModifySanity:
			player.ModifySanity(effect.Value)
		case models.OpModifyReality:
			player.ModifyReality(effect.Value)
		case models.OpModifyTrust:
			player.ModifyTrust(effect.NPC, effect.Value)
		case models.OpModifyAttention:
			player.ModifyAttention(effect.Value)
		case models.OpAdvanceTime:
			player.AdvanceTime(effect.Value)
		case models.OpAddItem:
			player.AddItem(effect.Name)
		case models.OpRemoveItem:
			player.RemoveItem(effect.Name)
		case models.OpAddClue:
			player.Clues[effect.Name] = true
		case models.OpSetSkill:
			player.Skills[effect.Name] = effect.Value
		default:
			return errors.Wrap(models.ErrConfig, "unknown effect op", slog.String("op", string(effect.Op)))
		}
	}
	return nil
}

// ApplyEffects exposes effect application for the scene engine, which stages
// choice effects on a clone before committing.
func ApplyEffects(effects []models.Effect, player *models.PlayerState) error {
	return applyEffects(effects, player)
}
