// Package game is the scene and dialogue engine: pure orchestration over the
// dice resolver, the text composer and the board. It holds no text
// formatting or graph logic of its own.
//
// Recoverable errors (unknown ids, out-of-range input) are converted to
// in-fiction narrative at this boundary; config and consistency errors
// propagate because they indicate broken content or a broken engine.
package game

import (
	"log/slog"
	"strconv"

	"github.com/mkarsten/kaltvik/internal/board"
	"github.com/mkarsten/kaltvik/internal/broker"
	"github.com/mkarsten/kaltvik/internal/compose"
	"github.com/mkarsten/kaltvik/internal/content"
	"github.com/mkarsten/kaltvik/internal/dice"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

// Engine drives sessions over a shared read-only catalog. One engine serves
// any number of sessions; per-session mutable state lives on the Session.
type Engine struct {
	catalog *content.Catalog
	broker  *broker.ChannelBroker[string, Event]
	logger  *slog.Logger
}

// New constructs an engine. The broker is optional; pass nil when no
// observer will stream session events.
func New(catalog *content.Catalog, brk *broker.ChannelBroker[string, Event], logger *slog.Logger) *Engine {
	return &Engine{catalog: catalog, broker: brk, logger: logger}
}

// Catalog exposes the engine's content set.
func (e *Engine) Catalog() *content.Catalog {
	return e.catalog
}

// NewSession starts a fresh playthrough with the catalog's theories loaded
// onto an empty board.
func (e *Engine) NewSession(id string, seed int64) (*Session, error) {
	b := board.New(e.logger)
	for _, theory := range e.catalog.Theories() {
		if err := b.AddTheory(theory); err != nil {
			return nil, err
		}
	}
	return &Session{
		ID:     id,
		Player: models.NewPlayerState(),
		Board:  b,
		Seed:   seed,
		roller: dice.NewRoller(seed),
	}, nil
}

// Start enters the catalog's start scene.
func (e *Engine) Start(session *Session) (*RenderedScene, error) {
	if e.catalog.StartScene == "" {
		return nil, errors.Wrap(models.ErrConfig, "catalog has no start scene")
	}
	return e.EnterScene(session, e.catalog.StartScene)
}

// OpenStream publishes the session's live event channel through the broker.
// The broker must be running.
func (e *Engine) OpenStream(session *Session) {
	if e.broker == nil || session.stream != nil {
		return
	}
	ch := make(chan Event, eventBuffer)
	session.stream = ch
	e.broker.Publish(session.ID, ch)
}

// CloseStream closes the live event channel, signalling observers that the
// session is done.
func (e *Engine) CloseStream(session *Session) {
	if session.stream == nil {
		return
	}
	close(session.stream)
	session.stream = nil
	if e.broker != nil {
		e.broker.Unpublish(session.ID)
	}
}

// ChoiceView is one offered exit, with the check surfaced so the player
// knows the stakes before committing.
type ChoiceView struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Skill string `json:"skill,omitempty"`
	DC    int    `json:"dc,omitempty"`
	Band  string `json:"band,omitempty"`
}

// RenderedScene is the full output of entering a scene.
type RenderedScene struct {
	SceneID  string           `json:"scene_id"`
	Location string           `json:"location"`
	Text     string           `json:"text"`
	Tokens   []compose.Token  `json:"tokens"`
	Choices  []ChoiceView     `json:"choices"`
	Ending   bool             `json:"ending"`
	Day      int              `json:"day"`
	Block    models.TimeBlock `json:"block"`
	// UnlockedTheories and CollapsedTheories report board transitions that
	// happened on entry, for the UI to surface.
	UnlockedTheories  []string `json:"unlocked_theories,omitempty"`
	CollapsedTheories []string `json:"collapsed_theories,omitempty"`
}

// EnterScene resolves a scene by id, advances time, updates the board and
// composes the scene text for the session's player.
//
// An unknown id or unmet scene prereqs yield ErrNotFound; the content
// validator keeps such scenes out of choice lists, so hitting this from
// normal play indicates a stale save or a debug jump.
func (e *Engine) EnterScene(session *Session, sceneID string) (*RenderedScene, error) {
	scene, ok := e.catalog.Scene(sceneID)
	if !ok {
		return nil, errors.Wrap(models.ErrNotFound, "unknown scene", slog.String("sceneID", sceneID))
	}

	player := session.Player
	active := session.Board.ActiveTheories()
	if !compose.EvalAll(scene.Prereqs, player, active) {
		return nil, errors.Wrap(models.ErrNotFound, "scene prereqs unmet", slog.String("sceneID", sceneID))
	}

	session.Turn++
	player.AdvanceTime(scene.TimeCost)
	player.CurrentScene = sceneID
	player.VisitedScenes[sceneID] = true

	// Held theories tint how the player sees the world. Exposure accrues
	// per scene and eventually shifts the archetype.
	for _, theory := range session.Board.Theories() {
		if !active[theory.ID] || theory.LensBias == "" {
			continue
		}
		player.RecordLensExposure(theory.LensBias)
	}

	now := clock(player)
	unlocked := session.Board.UnlockAvailable(player)
	for _, id := range unlocked {
		session.emit(Event{Turn: session.Turn, Kind: EventTheoryUnlocked, Scene: sceneID,
			Data: map[string]string{"theory": id}})
	}
	collapsed, sanityDamage := session.Board.Collapse(player, now)
	if sanityDamage > 0 {
		player.ModifySanity(-sanityDamage)
	}
	for _, id := range collapsed {
		session.emit(Event{Turn: session.Turn, Kind: EventTheoryCollapsed, Scene: sceneID,
			Data: map[string]string{"theory": id, "sanity_damage": strconv.Itoa(sanityDamage)}})
	}
	for _, id := range session.Board.UnlearnBroken(player, now) {
		session.emit(Event{Turn: session.Turn, Kind: EventTheoryUnlearned, Scene: sceneID,
			Data: map[string]string{"theory": id}})
	}

	composed := compose.Compose(scene.Text, player, compose.Options{
		Seed:           session.Seed + int64(session.Turn),
		Policy:         scene.Distortion,
		ActiveTheories: session.Board.ActiveTheories(),
	})

	session.emit(Event{Turn: session.Turn, Kind: EventSceneEntered, Scene: sceneID,
		Data: map[string]string{"day": strconv.Itoa(player.Day), "block": string(player.Block())}})

	rendered := &RenderedScene{
		SceneID:           sceneID,
		Location:          scene.Location,
		Text:              composed.Text,
		Tokens:            composed.Tokens,
		Choices:           e.visibleChoices(scene, player, session.Board.ActiveTheories()),
		Ending:            scene.Ending,
		Day:               player.Day,
		Block:             player.Block(),
		UnlockedTheories:  unlocked,
		CollapsedTheories: collapsed,
	}

	if scene.Ending && !session.ended {
		session.ended = true
		session.emit(Event{Turn: session.Turn, Kind: EventSessionEnded, Scene: sceneID})
		e.CloseStream(session)
	}
	return rendered, nil
}

// visibleChoices filters a scene's choices down to the ones the player may
// take: the choice's own prereqs must hold, and so must the target scene's.
// A scene whose prereqs are unmet is never offered as a destination.
func (e *Engine) visibleChoices(scene *models.Scene, player *models.PlayerState, active map[string]bool) []ChoiceView {
	var views []ChoiceView
	for i, choice := range scene.Choices {
		if !compose.EvalAll(choice.Prereqs, player, active) {
			continue
		}
		target, ok := e.catalog.Scene(choice.NextScene)
		if !ok || !compose.EvalAll(target.Prereqs, player, active) {
			continue
		}
		view := ChoiceView{Index: i, Label: choice.Label}
		if choice.Check != nil {
			view.Skill = choice.Check.Skill
			view.DC = choice.Check.DC
			view.Band = dice.Band(choice.Check.DC)
		}
		views = append(views, view)
	}
	return views
}

// Result is the outcome of taking a choice.
type Result struct {
	// Rejected is set when the input could not be acted on; Narrative then
	// carries the in-fiction explanation and no state changed.
	Rejected  bool           `json:"rejected,omitempty"`
	Narrative string         `json:"narrative,omitempty"`
	Outcome   dice.Outcome   `json:"outcome"`
	Check     *dice.Result   `json:"check,omitempty"`
	Evidence  []string       `json:"evidence,omitempty"`
	Scene     *RenderedScene `json:"scene,omitempty"`
}

// Rejection narratives for recoverable input problems. Per the error
// design, these render in fiction instead of crashing or surfacing codes.
const (
	narrativeNothingHappens = "You reach for it, but nothing happens. The moment passes."
	narrativeBadRoll        = "The dice refuse to settle. Steady your hand and roll again."
	narrativeSessionOver    = "The story has ended. There is nothing left to decide."
	narrativeTheoryResists  = "You try to hold the idea together, but it will not settle. Not yet."
)

// Choose takes the choice at index choiceIdx in the current scene. manual,
// when non-nil, is a player-entered 2d6 total for the choice's check.
//
// Effects apply transactionally: they are staged on a clone of the player
// and committed only after every effect and the scene transition have been
// validated. A failed check applies no effects; a partial success applies
// them plus the check's declared cost.
func (e *Engine) Choose(session *Session, choiceIdx int, manual *int) (*Result, error) {
	if session.ended {
		return &Result{Rejected: true, Narrative: narrativeSessionOver}, nil
	}
	scene, ok := e.catalog.Scene(session.Player.CurrentScene)
	if !ok {
		return nil, errors.Wrap(models.ErrConsistency, "session in unknown scene",
			slog.String("sceneID", session.Player.CurrentScene))
	}

	active := session.Board.ActiveTheories()
	if choiceIdx < 0 || choiceIdx >= len(scene.Choices) {
		e.logger.Warn("choice index out of range", "sceneID", scene.ID, "choice", choiceIdx)
		return &Result{Rejected: true, Narrative: narrativeNothingHappens}, nil
	}
	choice := scene.Choices[choiceIdx]
	if !compose.EvalAll(choice.Prereqs, session.Player, active) {
		return &Result{Rejected: true, Narrative: narrativeNothingHappens}, nil
	}

	staged := session.Player.Clone()
	result := &Result{}
	next := choice.NextScene
	applyEffects := true

	if choice.Check != nil {
		roll, err := e.rollFor(session, manual)
		if err != nil {
			if errors.Is(err, models.ErrInput) {
				e.logger.Warn("manual roll rejected", errors.SlogError(err))
				return &Result{Rejected: true, Narrative: narrativeBadRoll}, nil
			}
			return nil, err
		}
		checkResult, err := dice.Resolve(*choice.Check, staged.Skills, roll)
		if err != nil {
			return nil, err
		}
		result.Check = &checkResult
		result.Outcome = checkResult.Outcome
		session.emit(Event{Turn: session.Turn, Kind: EventCheckResolved, Scene: scene.ID,
			Data: map[string]string{
				"skill":   choice.Check.Skill,
				"roll":    strconv.Itoa(roll.Total),
				"total":   strconv.Itoa(checkResult.Total),
				"dc":      strconv.Itoa(choice.Check.DC),
				"outcome": checkResult.Outcome.String(),
			}})

		switch checkResult.Outcome {
		case dice.OutcomePartialSuccess:
			applyCost(dice.PartialCost(*choice.Check), staged)
		case dice.OutcomeFailure:
			applyEffects = false
			next = failDestination(choice, scene.ID)
		case dice.OutcomeCriticalFailure:
			// Things go loudly wrong: the failure also incurs the cost a
			// narrow success would have.
			applyEffects = false
			applyCost(dice.PartialCost(*choice.Check), staged)
			next = failDestination(choice, scene.ID)
		}
	}

	var collected, internalized []string
	if applyEffects {
		playerEffects := make([]models.Effect, 0, len(choice.Effects))
		for _, effect := range choice.Effects {
			switch effect.Op {
			case models.OpCollectEvidence:
				collected = append(collected, effect.Name)
			case models.OpInternalizeTheory:
				internalized = append(internalized, effect.Name)
			default:
				playerEffects = append(playerEffects, effect)
			}
		}
		if err := board.ApplyEffects(playerEffects, staged); err != nil {
			return nil, err
		}
	}

	// Validate the transition against the staged state before committing,
	// so a blocked destination leaves no partial application behind.
	target, ok := e.catalog.Scene(next)
	if !ok || !compose.EvalAll(target.Prereqs, staged, active) {
		e.logger.Warn("choice destination not enterable", "sceneID", scene.ID, "target", next)
		return &Result{Rejected: true, Narrative: narrativeNothingHappens}, nil
	}

	// Internalize last among the rejectable steps: the board validates
	// availability and slots before it mutates anything, so a rejection here
	// still leaves session state untouched.
	for _, theoryID := range internalized {
		if err := session.Board.Internalize(theoryID, staged, clock(staged)); err != nil {
			if errors.Is(err, models.ErrInput) {
				e.logger.Warn("theory not internalizable", "sceneID", scene.ID,
					"theoryID", theoryID, errors.SlogError(err))
				return &Result{Rejected: true, Narrative: narrativeTheoryResists}, nil
			}
			if errors.Is(err, models.ErrNotFound) {
				return nil, errors.Wrap(models.ErrConsistency, "validated choice internalizes unknown theory",
					slog.String("theoryID", theoryID))
			}
			return nil, err
		}
		session.emit(Event{Turn: session.Turn, Kind: EventTheoryInternalized, Scene: scene.ID,
			Data: map[string]string{"theory": theoryID}})
	}

	*session.Player = *staged
	now := clock(session.Player)
	for _, evidenceID := range collected {
		ev, ok := e.catalog.EvidenceByID(evidenceID)
		if !ok {
			return nil, errors.Wrap(models.ErrConsistency, "validated choice collects unknown evidence",
				slog.String("evidenceID", evidenceID))
		}
		if err := session.Board.AddEvidence(ev, now); err != nil {
			return nil, err
		}
		session.emit(Event{Turn: session.Turn, Kind: EventEvidenceCollected, Scene: scene.ID,
			Data: map[string]string{"evidence": evidenceID}})
	}
	result.Evidence = collected

	session.Inputs = append(session.Inputs, ChoiceInput{Choice: choiceIdx, Manual: manual})
	session.emit(Event{Turn: session.Turn, Kind: EventChoiceTaken, Scene: scene.ID,
		Data: map[string]string{"choice": strconv.Itoa(choiceIdx), "label": choice.Label}})

	rendered, err := e.EnterScene(session, next)
	if err != nil {
		return nil, errors.Wrap(models.ErrConsistency, "committed choice could not enter destination",
			slog.String("target", next))
	}
	result.Scene = rendered
	return result, nil
}

// rollFor throws the session's dice, or reconstructs a manual roll from a
// player-entered total.
func (e *Engine) rollFor(session *Session, manual *int) (dice.Roll, error) {
	if manual != nil {
		return dice.ManualRoll(*manual)
	}
	session.rolls++
	return session.roller.Roll(), nil
}

// failDestination is where a failed check sends the player: the authored
// fail scene, or back into the current scene to try something else.
func failDestination(choice models.Choice, currentScene string) string {
	if choice.Check != nil && choice.Check.FailScene != "" {
		return choice.Check.FailScene
	}
	return currentScene
}

// applyCost charges the price of a narrow success. Costs land on the staged
// clone so they commit or vanish together with the choice's effects.
func applyCost(kind models.CostKind, staged *models.PlayerState) {
	switch kind {
	case models.CostTime:
		staged.AdvanceTime(30)
	case models.CostTrust:
		// Word gets around. Every known contact cools a little.
		for npc := range staged.Trust {
			staged.ModifyTrust(npc, -1)
		}
	case models.CostInjury:
		staged.Flags["injured"] = true
		staged.ModifySanity(-2)
	case models.CostAttention:
		staged.ModifyAttention(1)
	case models.CostNoise:
		staged.ModifyAttention(2)
	case models.CostEvidence:
		staged.Flags["evidence_compromised"] = true
	}
}

// Narrative for a check outcome, used by surfaces that print a one-line
// result before the next scene.
func OutcomeNarrative(outcome dice.Outcome) string {
	switch outcome {
	case dice.OutcomeCriticalSuccess:
		return "It goes better than you had any right to expect."
	case dice.OutcomeSuccess:
		return "It works."
	case dice.OutcomePartialSuccess:
		return "It works, at a price."
	case dice.OutcomeFailure:
		return "It doesn't work."
	case dice.OutcomeCriticalFailure:
		return "It goes wrong. Badly."
	default:
		return ""
	}
}
