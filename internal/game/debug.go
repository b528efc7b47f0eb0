package game

import (
	"encoding/json"
	"log/slog"

	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

// Debug operations behind the console commands. Parsing and sanitization of
// command arguments live in the console, not here; these take typed values
// and report recoverable problems as ErrInput or ErrNotFound for the caller
// to re-prompt on.

// Skill values the debug surface accepts. Play-acquired values stay inside
// this band too.
const (
	minSkillValue = -5
	maxSkillValue = 12
)

// SetSkillValue overwrites a skill on the session's player.
func (e *Engine) SetSkillValue(session *Session, skill string, value int) error {
	if skill == "" {
		return errors.Wrap(models.ErrInput, "empty skill name")
	}
	if value < minSkillValue || value > maxSkillValue {
		return errors.Wrap(models.ErrInput, "skill value out of range",
			slog.String("skill", skill), slog.Int("value", value))
	}
	session.Player.Skills[skill] = value
	session.emit(Event{Turn: session.Turn, Kind: EventDebug,
		Data: map[string]string{"op": "setskill", "skill": skill}})
	return nil
}

// AddItem puts an item in the player's inventory.
func (e *Engine) AddItem(session *Session, itemID string) error {
	if itemID == "" {
		return errors.Wrap(models.ErrInput, "empty item id")
	}
	session.Player.AddItem(itemID)
	session.emit(Event{Turn: session.Turn, Kind: EventDebug,
		Data: map[string]string{"op": "give", "item": itemID}})
	return nil
}

// SetTheoryStatus forces a theory into a lifecycle state, applying or
// reverting its deltas as the transition requires. Unknown ids surface as
// ErrNotFound for the console to report.
func (e *Engine) SetTheoryStatus(session *Session, theoryID string, status models.TheoryStatus) error {
	err := session.Board.SetStatus(theoryID, status, session.Player, clock(session.Player))
	if err != nil {
		return err
	}
	session.emit(Event{Turn: session.Turn, Kind: EventDebug,
		Data: map[string]string{"op": "toggletheory", "theory": theoryID, "status": string(status)}})
	return nil
}

// TriggerFlag sets a story flag directly.
func (e *Engine) TriggerFlag(session *Session, name string) error {
	if name == "" {
		return errors.Wrap(models.ErrInput, "empty flag name")
	}
	session.Player.Flags[name] = true
	session.emit(Event{Turn: session.Turn, Kind: EventDebug,
		Data: map[string]string{"op": "trigger", "flag": name}})
	return nil
}

// Playback replays recorded inputs against a session, usually one freshly
// rebuilt from the same seed. A rejected input aborts the replay because
// everything after it would diverge.
func (e *Engine) Playback(session *Session, inputs []ChoiceInput) error {
	for i, input := range inputs {
		result, err := e.Choose(session, input.Choice, input.Manual)
		if err != nil {
			return errors.Wrap(err, "playback failed", slog.Int("input", i))
		}
		if result.Rejected {
			return errors.Wrap(models.ErrInput, "playback diverged",
				slog.Int("input", i), slog.Int("choice", input.Choice))
		}
	}
	return nil
}

// debugExport is the full diagnostic dump for one session.
type debugExport struct {
	Snapshot Snapshot `json:"snapshot"`
	Events   []Event  `json:"events"`
}

// DebugExport serializes the session's snapshot and complete event log.
func (e *Engine) DebugExport(session *Session) ([]byte, error) {
	export := debugExport{
		Snapshot: session.ToSnapshot(),
		Events:   session.Events,
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal debug export")
	}
	return data, nil
}
