package game

import (
	"github.com/mkarsten/kaltvik/internal/board"
	"github.com/mkarsten/kaltvik/internal/dice"
	"github.com/mkarsten/kaltvik/internal/models"
)

// Session is the explicit context object for one playthrough. It owns the
// player state and the board exclusively; the engine never shares state
// between sessions and holds no process-wide singletons.
type Session struct {
	ID     string
	Player *models.PlayerState
	Board  *board.Board
	// Seed drives every random decision in the session. Recreating a
	// session with the same seed and replaying the same inputs reproduces
	// the playthrough exactly.
	Seed int64
	// Turn counts scene entries. It varies the distortion seed so the same
	// scene does not corrupt identically twice in a row.
	Turn int
	// Events is the append-only session log.
	Events []Event
	// Inputs records every accepted choice for playback.
	Inputs []ChoiceInput

	roller *dice.Roller
	// rolls counts throws consumed from the seeded roller, so a restored
	// session can fast-forward to the same point in the dice sequence.
	rolls  int
	stream chan Event
	ended  bool
}

// ChoiceInput is one recorded player decision: the choice index and, for
// manual dice entry, the rolled total.
type ChoiceInput struct {
	Choice int  `json:"choice"`
	Manual *int `json:"manual,omitempty"`
}

// Ended reports whether the session has reached a terminal scene.
func (s *Session) Ended() bool {
	return s.ended
}

// clock is the session's game time in total minutes, the unit the board's
// health degradation runs on.
func clock(p *models.PlayerState) int {
	return (p.Day-1)*24*60 + p.Minutes
}
