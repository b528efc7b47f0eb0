package game

import (
	"log/slog"

	"github.com/mkarsten/kaltvik/internal/board"
	"github.com/mkarsten/kaltvik/internal/dice"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

// SnapshotVersion is bumped on incompatible changes to the save format.
const SnapshotVersion = 1

// Snapshot is the complete serializable state of a session. ToSnapshot and
// FromSnapshot are pure and round-trip exactly.
type Snapshot struct {
	Version int                 `json:"version"`
	Seed    int64               `json:"seed"`
	Turn    int                 `json:"turn"`
	Ended   bool                `json:"ended"`
	Rolls   int                 `json:"rolls"`
	Player  *models.PlayerState `json:"player"`
	Board   board.Snapshot      `json:"board"`
	Inputs  []ChoiceInput       `json:"inputs,omitempty"`
}

// ToSnapshot captures the session. The player is deep-copied so later play
// does not mutate the snapshot.
func (s *Session) ToSnapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Seed:    s.Seed,
		Turn:    s.Turn,
		Ended:   s.ended,
		Rolls:   s.rolls,
		Player:  s.Player.Clone(),
		Board:   s.Board.ToSnapshot(),
		Inputs:  append([]ChoiceInput(nil), s.Inputs...),
	}
}

// SessionFromSnapshot reconstructs a session exactly as captured.
//
// The dice roller is re-seeded and fast-forwarded past the rolls already
// consumed, so a restored session continues the same dice sequence the
// original would have produced.
func (e *Engine) SessionFromSnapshot(id string, snapshot Snapshot) (*Session, error) {
	if snapshot.Version != SnapshotVersion {
		return nil, errors.Wrap(models.ErrConfig, "unsupported snapshot version",
			slog.Int("version", snapshot.Version))
	}
	b, err := board.FromSnapshot(snapshot.Board, e.logger)
	if err != nil {
		return nil, err
	}
	roller := dice.NewRoller(snapshot.Seed)
	for i := 0; i < snapshot.Rolls; i++ {
		roller.Roll()
	}
	return &Session{
		ID:     id,
		Player: snapshot.Player.Clone(),
		Board:  b,
		Seed:   snapshot.Seed,
		Turn:   snapshot.Turn,
		Inputs: append([]ChoiceInput(nil), snapshot.Inputs...),
		roller: roller,
		rolls:  snapshot.Rolls,
		ended:  snapshot.Ended,
	}, nil
}
